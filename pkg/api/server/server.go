// Package server serves the agent's loopback HTTP API.
package server

//go:generate mockery -name Agent

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/davsync/pkg/api"
	"github.com/sidkik/davsync/pkg/errors"
	"github.com/sidkik/davsync/pkg/sync"
)

// Agent is the part of the agent that's exposed over the API.
type Agent interface {
	GetStatus() sync.Status
	GetActivity(limit int) []sync.ActivityEntry
	TriggerSync(ctx context.Context) error
}

const shutdownTimeout = 5 * time.Second

type server struct {
	agent Agent
}

// NewHandler returns the HTTP handler for the API.
func NewHandler(agent Agent) http.Handler {
	s := &server{agent}

	r := mux.NewRouter()
	r.HandleFunc(api.StatusPath, s.getStatus).Methods(http.MethodGet)
	r.HandleFunc(api.ActivityPath, s.getActivity).Methods(http.MethodGet)
	r.HandleFunc(api.SyncPath, s.triggerSync).Methods(http.MethodPost)
	return r
}

// Run serves the API on `address` until `ctx` is cancelled.
func Run(ctx context.Context, address string, agent Agent) error {
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return errors.WithContext(err, "listen")
	}
	return Serve(ctx, lis, agent)
}

// Serve serves the API on `lis` until `ctx` is cancelled.
func Serve(ctx context.Context, lis net.Listener, agent Agent) error {
	srv := &http.Server{
		Handler:           NewHandler(agent),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(lis)
	}()
	log.WithField("address", lis.Addr().String()).Info("Listening for connections..")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.WithContext(err, "shutdown")
	}
	if err := <-errCh; err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *server) getStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, api.StatusResponse{Status: s.agent.GetStatus()})
}

func (s *server) getActivity(w http.ResponseWriter, r *http.Request) {
	limit := api.DefaultActivityLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	entries := s.agent.GetActivity(limit)
	if entries == nil {
		entries = []sync.ActivityEntry{}
	}
	writeJSON(w, http.StatusOK, api.ActivityResponse{Entries: entries})
}

func (s *server) triggerSync(w http.ResponseWriter, r *http.Request) {
	// The sync keeps running if the caller goes away, so that rclone isn't
	// killed partway through.
	err := s.agent.TriggerSync(context.WithoutCancel(r.Context()))
	if err != nil && errors.RootCause(err) != errors.ErrSyncInProgress {
		log.WithError(err).Warn("Requested sync didn't run")
	}

	apiErr := api.MarshalError(err)
	writeJSON(w, apiErr.HTTPStatus(), api.SyncResponse{Error: apiErr})
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Debug("Failed to write response")
	}
}
