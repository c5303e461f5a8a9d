package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-conference-central/internal/auth"
	apierrors "github.com/pribylovaa/go-conference-central/internal/http/errors"
	"github.com/pribylovaa/go-conference-central/internal/service"
)

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.Register(r.Context(), auth.UserFrom(r.Context()), chi.URLParam(r, "websafeConferenceKey"))
	writeRegistration(w, r, res, err)
}

func (h *Handlers) Unregister(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.Unregister(r.Context(), auth.UserFrom(r.Context()), chi.URLParam(r, "websafeConferenceKey"))
	writeRegistration(w, r, res, err)
}

// writeRegistration: успех -> 200 с причиной, отказ -> статус исхода с причиной в message.
func writeRegistration(w http.ResponseWriter, r *http.Request, res service.RegistrationResult, err error) {
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := res.Err(); err != nil {
		apierrors.WriteErrorMessage(w, r, err, res.Reason)
		return
	}

	writeJSON(w, http.StatusOK, Registration{Success: res.Success, Reason: res.Reason})
}
