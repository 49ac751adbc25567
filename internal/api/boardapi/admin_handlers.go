package boardapi

import (
	"net/http"

	"github.com/BearBump/LoadBoard/internal/access"
	"github.com/BearBump/LoadBoard/internal/apperr"
	"github.com/pkg/errors"
)

func (a *API) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	if !access.Allowed(id.Role, access.OpViewAdminStats) {
		writeError(w, errors.Wrapf(apperr.ErrPermissionDenied, "role %q cannot view admin stats", id.Role))
		return
	}
	st, err := a.dir.AdminStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) handleListAllLoads(w http.ResponseWriter, r *http.Request) {
	ls, err := a.loads.ListAllLoads(r.Context(), actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"loads": ls})
}

func (a *API) handleListDrivers(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	if !access.Allowed(id.Role, access.OpManageUsers) {
		writeError(w, errors.Wrapf(apperr.ErrPermissionDenied, "role %q cannot manage users", id.Role))
		return
	}
	ds, err := a.dir.ListDrivers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"drivers": ds})
}
