package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"pdf-signer/internal/domain"
	"pdf-signer/internal/service"

	"github.com/gorilla/mux"
)

const eventsKeepAlive = 15 * time.Second

// SessionHandler manages signing sessions and streams their placement changes.
type SessionHandler struct {
	sessions *service.SessionService
	logger   domain.Logger
}

func NewSessionHandler(sessions *service.SessionService, logger domain.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Create()
	writeJSON(w, http.StatusCreated, sess.View())
}

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(mux.Vars(r)["sid"]); err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Events streams the placement list as server-sent events: one "placements" event
// with the current list, then one per change.
func (h *SessionHandler) Events(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	updates := make(chan []domain.Placement, 8)
	unsubscribe := sess.Placements.Subscribe(func(snap []domain.Placement) {
		select {
		case updates <- snap:
		default:
			// Slow client; it will catch up on the next change.
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, sess.Placements.Snapshot()); err != nil {
		return
	}
	flusher.Flush()

	keepAlive := time.NewTicker(eventsKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug("Event stream closed", "session_id", sess.ID)
			return
		case snap := <-updates:
			if err := writeEvent(w, snap); err != nil {
				return
			}
			flusher.Flush()
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, placements []domain.Placement) error {
	if placements == nil {
		placements = []domain.Placement{}
	}
	data, err := json.Marshal(placements)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: placements\ndata: %s\n\n", data)
	return err
}
