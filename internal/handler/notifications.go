package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
)

func (h *Handler) listNotifications(w http.ResponseWriter, _ *http.Request) {
	notes := h.notes.Recent()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, n := range notes {
			e.ObjStart()
			e.FieldStart("id")
			e.Str(n.ID)
			e.FieldStart("message")
			e.Str(n.Message)
			e.FieldStart("type")
			e.Str(string(n.Kind))
			e.FieldStart("createdAt")
			e.Str(n.CreatedAt.UTC().Format(time.RFC3339Nano))
			e.ObjEnd()
		}
		e.ArrEnd()
	})
}

func (h *Handler) dismissNotification(w http.ResponseWriter, r *http.Request) {
	if !h.notes.Dismiss(r.PathValue("id")) {
		writeJSON(w, http.StatusNotFound, func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("code")
			e.Int(http.StatusNotFound)
			e.FieldStart("message")
			e.Str("notification not found")
			e.ObjEnd()
		})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
