package handlers

import (
	"net/http"

	"github.com/pribylovaa/go-conference-central/internal/auth"
	apierrors "github.com/pribylovaa/go-conference-central/internal/http/errors"
	"github.com/pribylovaa/go-conference-central/internal/service"
)

func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.Profile(r.Context(), auth.UserFrom(r.Context()))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profileFromModel(p))
}

func (h *Handlers) SaveProfile(w http.ResponseWriter, r *http.Request) {
	var in ProfileForm
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, service.ErrInvalidArgument)
		return
	}

	form, err := in.toService()
	if err != nil {
		apierrors.WriteError(w, r, service.ErrInvalidArgument)
		return
	}

	p, err := h.Service.SaveProfile(r.Context(), auth.UserFrom(r.Context()), form)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profileFromModel(p))
}
