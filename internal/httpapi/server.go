package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/BrandonDHaskell/Janus/internal/janus/bus"
	"github.com/BrandonDHaskell/Janus/internal/janus/service"
	"github.com/BrandonDHaskell/Janus/internal/janus/store"
)

type Dependencies struct {
	Logger   *log.Logger
	Addr     string
	Registry *service.LockRegistry
	Events   store.AccessEventStore

	// AllowActions gates the action endpoint; when false it always
	// answers 403.
	AllowActions bool
}

type Server struct {
	httpServer   *http.Server
	logger       *log.Logger
	mux          *http.ServeMux
	registry     *service.LockRegistry
	events       store.AccessEventStore
	allowActions bool
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:       d.Logger,
		mux:          mux,
		registry:     d.Registry,
		events:       d.Events,
		allowActions: d.AllowActions,
	}

	mux.HandleFunc("GET /v1/locks", s.handleLocks)
	mux.HandleFunc("GET /v1/locks/{id}", s.handleLock)
	mux.HandleFunc("GET /v1/locks/{id}/last_access", s.handleLastAccess)
	mux.HandleFunc("POST /v1/locks/{id}/action", s.handleAction)

	handler := loggingMiddleware(d.Logger, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// lockStatusJSON is the wire form of a monitored lock's status.
type lockStatusJSON struct {
	LockID          int64  `json:"lock_id"`
	Name            string `json:"name"`
	State           string `json:"state"`
	BatteryCritical bool   `json:"battery_critical"`
	BatteryLevel    *int   `json:"battery_level,omitempty"`
	Available       bool   `json:"available"`
	LastKeypadUser  string `json:"last_keypad_user,omitempty"`
	LastKeypadDate  string `json:"last_keypad_date,omitempty"`
	LastManualDate  string `json:"last_manual_date,omitempty"`
}

func statusJSON(st service.LockStatus) lockStatusJSON {
	return lockStatusJSON{
		LockID:          st.LockID,
		Name:            st.Name,
		State:           st.State,
		BatteryCritical: st.BatteryCritical,
		BatteryLevel:    st.BatteryLevel,
		Available:       st.Available,
		LastKeypadUser:  st.LastKeypadUser,
		LastKeypadDate:  st.LastKeypadDate,
		LastManualDate:  st.LastManualDate,
	}
}

func (s *Server) handleLocks(w http.ResponseWriter, r *http.Request) {
	monitors := s.registry.Monitors()
	out := make([]lockStatusJSON, 0, len(monitors))
	for _, m := range monitors {
		out = append(out, statusJSON(m.Status()))
	}
	writeJSON(w, http.StatusOK, map[string]any{"locks": out})
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	m, ok := s.lockFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, statusJSON(m.Status()))
}

// accessEventJSON is the wire form of one audited access event.
type accessEventJSON struct {
	User            string `json:"user"`
	OriginalName    string `json:"original_user_name,omitempty"`
	AccessMethod    string `json:"access_method"`
	Action          int    `json:"action"`
	AuthID          string `json:"auth_id,omitempty"`
	State           int    `json:"state"`
	DetectionReason string `json:"detection_reason"`
	Timestamp       string `json:"timestamp"`
	OccurredAt      string `json:"occurred_at"`
}

func eventJSON(rec *store.AccessEventRecord) *accessEventJSON {
	if rec == nil {
		return nil
	}
	return &accessEventJSON{
		User:            rec.User,
		OriginalName:    rec.OriginalName,
		AccessMethod:    rec.AccessMethod,
		Action:          rec.Action,
		AuthID:          rec.AuthID,
		State:           rec.State,
		DetectionReason: rec.DetectionReason,
		Timestamp:       rec.RawDate,
		OccurredAt:      rec.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}

func (s *Server) handleLastAccess(w http.ResponseWriter, r *http.Request) {
	m, ok := s.lockFromPath(w, r)
	if !ok {
		return
	}
	lockID := m.Status().LockID

	keypad, err := s.events.LastEvent(r.Context(), lockID, bus.ChannelKeypadAction)
	if err != nil {
		s.logger.Printf("last_access query error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	manual, err := s.events.LastEvent(r.Context(), lockID, bus.ChannelManualAction)
	if err != nil {
		s.logger.Printf("last_access query error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"lock_id": lockID,
		"keypad":  eventJSON(keypad),
		"manual":  eventJSON(manual),
	})
}

type actionRequest struct {
	Action string `json:"action"`
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	if !s.allowActions {
		writeError(w, http.StatusForbidden, "actions_disabled", "lock actions are disabled by configuration")
		return
	}

	m, ok := s.lockFromPath(w, r)
	if !ok {
		return
	}

	var req actionRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	if err := m.Action(r.Context(), req.Action); err != nil {
		if errors.Is(err, service.ErrUnknownAction) {
			writeError(w, http.StatusBadRequest, "unknown_action", err.Error())
			return
		}
		s.logger.Printf("action error: %v", err)
		writeError(w, http.StatusBadGateway, "upstream_error", "lock action failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "action": req.Action})
}

// lockFromPath resolves the {id} path segment to a registered monitor,
// writing the error response itself when that fails.
func (s *Server) lockFromPath(w http.ResponseWriter, r *http.Request) (*service.LockMonitor, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_lock_id", "lock id must be an integer")
		return nil, false
	}
	m := s.registry.Monitor(id)
	if m == nil {
		writeError(w, http.StatusNotFound, "unknown_lock", "no such lock")
		return nil, false
	}
	return m, true
}
