package boardapi

import (
	"net/http"

	"github.com/BearBump/LoadBoard/internal/services/auth"
)

func (a *API) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var in auth.SignUpInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	p, err := a.auth.SignUp(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (a *API) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var in verifyRequest
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if err := a.auth.VerifyEmail(r.Context(), in.Email, in.Code); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

type resendRequest struct {
	Email string `json:"email"`
}

func (a *API) handleResendOTP(w http.ResponseWriter, r *http.Request) {
	var in resendRequest
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if err := a.auth.ResendOTP(r.Context(), in.Email); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"sent": true})
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var in signInRequest
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	sess, err := a.auth.SignIn(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (a *API) handleAdminSignIn(w http.ResponseWriter, r *http.Request) {
	var in signInRequest
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	sess, err := a.auth.AdminSignIn(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (a *API) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := a.auth.Profile(r.Context(), identity(r).UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type updateProfileRequest struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
}

func (a *API) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in updateProfileRequest
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	p, err := a.auth.UpdateProfile(r.Context(), identity(r).UserID, in.FullName, in.Phone)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleUserStats(w http.ResponseWriter, r *http.Request) {
	st, err := a.loads.UserStats(r.Context(), actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
