package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-conference-central/internal/auth"
	apierrors "github.com/pribylovaa/go-conference-central/internal/http/errors"
	"github.com/pribylovaa/go-conference-central/internal/service"
)

func (h *Handlers) CreateConference(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFrom(r.Context())
	if user == nil {
		apierrors.WriteError(w, r, service.ErrAuthRequired)
		return
	}

	var in ConferenceForm
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, service.ErrInvalidArgument)
		return
	}

	form, err := in.toModel()
	if err != nil {
		apierrors.WriteError(w, r, service.ErrInvalidArgument)
		return
	}

	c, err := h.Service.CreateConference(r.Context(), user, form)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, conferenceFromModel(c))
}

func (h *Handlers) GetConference(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.Conference(r.Context(), chi.URLParam(r, "websafeConferenceKey"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, conferenceFromModel(c))
}

func (h *Handlers) ConferencesCreated(w http.ResponseWriter, r *http.Request) {
	out, err := h.Service.ConferencesCreated(r.Context(), auth.UserFrom(r.Context()))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, conferencesFromModel(out))
}

func (h *Handlers) ConferencesToAttend(w http.ResponseWriter, r *http.Request) {
	out, err := h.Service.ConferencesToAttend(r.Context(), auth.UserFrom(r.Context()))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, conferencesFromModel(out))
}

func (h *Handlers) QueryConferences(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFrom(r.Context())
	if user == nil {
		apierrors.WriteError(w, r, service.ErrAuthRequired)
		return
	}

	var in QueryForm
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, service.ErrInvalidArgument)
		return
	}

	out, err := h.Service.QueryConferences(r.Context(), user, in.toModel())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, conferencesFromModel(out))
}
