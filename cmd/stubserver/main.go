// Command stubserver runs a local stand-in for the analytics API so the
// client and the example app can be exercised without real credentials.
// It implements POST /track and POST /import with the documented success
// and error bodies.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/nicktill/mixgo/pkg/httpx"
	"github.com/nicktill/mixgo/pkg/logger"
)

type eventBody struct {
	Event      string         `json:"event"`
	Properties map[string]any `json:"properties"`
}

type server struct {
	log *zap.Logger
}

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	log, err := logger.New("development")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	s := &server{log: log}

	r := mux.NewRouter()
	r.HandleFunc("/track", s.handleTrack).Methods(http.MethodPost)
	r.HandleFunc("/import", s.handleImport).Methods(http.MethodPost)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Info("stub analytics server listening", zap.String("addr", *addr))
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func (s *server) handleTrack(w http.ResponseWriter, r *http.Request) {
	events, err := decodeEvents(r.Body)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	for _, ev := range events {
		if ev.Event == "" {
			httpx.RespondError(w, http.StatusBadRequest, "event name missing")
			return
		}
		if tok, _ := ev.Properties["token"].(string); tok == "" {
			httpx.RespondError(w, http.StatusBadRequest, "token missing from properties")
			return
		}
	}

	s.log.Info("track accepted", zap.Int("events", len(events)))
	httpx.RespondJSON(w, http.StatusOK, map[string]int{"status": 1})
}

func (s *server) handleImport(w http.ResponseWriter, r *http.Request) {
	if user, pass, ok := r.BasicAuth(); !ok || user == "" || pass == "" {
		httpx.RespondError(w, http.StatusUnauthorized, "basic auth required")
		return
	}

	events, err := decodeEvents(r.Body)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	for _, ev := range events {
		if _, ok := ev.Properties["project_id"]; !ok {
			httpx.RespondError(w, http.StatusBadRequest, "project_id missing from properties")
			return
		}
	}

	s.log.Info("import accepted", zap.Int("events", len(events)))
	httpx.RespondJSON(w, http.StatusOK, map[string]int{"num_records_imported": len(events)})
}

// decodeEvents accepts both wire shapes: a bare event object or an array.
func decodeEvents(body io.Reader) ([]eventBody, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var events []eventBody
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, err
		}
		return events, nil
	}
	var ev eventBody
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return nil, err
	}
	return []eventBody{ev}, nil
}
