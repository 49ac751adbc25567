package boardapi

import (
	"net/http"

	"github.com/BearBump/LoadBoard/internal/apperr"
	"github.com/BearBump/LoadBoard/internal/deeplink"
	"github.com/BearBump/LoadBoard/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

func (a *API) handlePostLoad(w http.ResponseWriter, r *http.Request) {
	var in models.LoadCreateInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	l, err := a.loads.PostLoad(r.Context(), actor(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (a *API) handleGetLoad(w http.ResponseWriter, r *http.Request) {
	l, err := a.loads.GetLoad(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (a *API) handleListMarket(w http.ResponseWriter, r *http.Request) {
	ls, err := a.loads.ListMarket(r.Context(), actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"loads": ls})
}

func (a *API) handleListMyLoads(w http.ResponseWriter, r *http.Request) {
	ls, err := a.loads.ListMyLoads(r.Context(), actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"loads": ls})
}

func (a *API) handleAcceptLoad(w http.ResponseWriter, r *http.Request) {
	l, err := a.loads.AcceptLoad(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (a *API) handleCompleteLoad(w http.ResponseWriter, r *http.Request) {
	l, err := a.loads.CompleteLoad(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (a *API) handleCancelLoad(w http.ResponseWriter, r *http.Request) {
	l, err := a.loads.CancelLoad(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (a *API) handleForceCancel(w http.ResponseWriter, r *http.Request) {
	l, err := a.loads.ForceCancel(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// handleContactLink отдаёт ссылку для связи с контрагентом по грузу:
// водителю — с владельцем, владельцу — с назначенным водителем.
func (a *API) handleContactLink(w http.ResponseWriter, r *http.Request) {
	act := actor(r)
	l, err := a.loads.GetLoad(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var counterpartID string
	switch {
	case l.DriverID != nil && *l.DriverID == act.ID:
		counterpartID = l.OwnerID
	case l.OwnerID == act.ID:
		if l.DriverID == nil {
			writeError(w, apperr.Validationf("load has no assigned driver yet"))
			return
		}
		counterpartID = *l.DriverID
	default:
		writeError(w, errors.Wrap(apperr.ErrPermissionDenied, "not a party of this load"))
		return
	}

	p, err := a.dir.GetProfileByID(r.Context(), counterpartID)
	if err != nil {
		writeError(w, err)
		return
	}

	var link string
	switch via := r.URL.Query().Get("via"); via {
	case "", "whatsapp":
		link, err = deeplink.WhatsApp(p.Phone, l.Origin, l.Destination)
	case "tel":
		link, err = deeplink.Tel(p.Phone)
	default:
		err = apperr.Validationf("unknown contact channel %q", via)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"link": link})
}
