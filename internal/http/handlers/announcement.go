package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/go-conference-central/internal/http/errors"
)

// GetAnnouncement отдаёт текущий анонс; 204, если его нет.
func (h *Handlers) GetAnnouncement(w http.ResponseWriter, r *http.Request) {
	a, err := h.Service.Announcement(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}
	if a == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, Announcement{Message: a.Message})
}

// RefreshAnnouncement — cron-триггер пересчёта анонса.
func (h *Handlers) RefreshAnnouncement(w http.ResponseWriter, r *http.Request) {
	updated, err := h.Service.RefreshAnnouncement(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AnnouncementRefresh{Updated: updated})
}
