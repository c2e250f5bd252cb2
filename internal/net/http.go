// Package net exposes the HTTP and websocket surface of the match server.
package net

import (
	"encoding/json"
	nethttp "net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	server "nock-and-loose/server"
	"nock-and-loose/server/internal/net/ws"
	"nock-and-loose/server/internal/telemetry"
	"nock-and-loose/server/logging"
)

// HTTPConfig tunes the HTTP surface.
type HTTPConfig struct {
	Logger         telemetry.Logger
	Metrics        *logging.Metrics
	AllowedOrigins []string
	// AdminToken guards the match-control routes when non-empty. The
	// routes hold the authority capability, so exposing them unguarded is
	// only sensible on a trusted network.
	AdminToken string
}

// NewHTTPHandler builds the chi router for the hub.
func NewHTTPHandler(hub *server.Hub, cfg HTTPConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	wsHandler := ws.NewHandler(hub, logger)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Admin-Token"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		w.WriteHeader(nethttp.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Post("/api/join", func(w nethttp.ResponseWriter, req *nethttp.Request) {
		var body struct {
			Name string `json:"name"`
		}
		if req.Body != nil {
			// An empty body is fine; the hub generates a name.
			json.NewDecoder(req.Body).Decode(&body)
		}
		writeJSON(w, nethttp.StatusOK, hub.Join(body.Name))
	})

	r.Get("/ws", wsHandler.Handle)

	r.Get("/api/ledger", func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		session := hub.Session()
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"running": session.Running(),
			"scoring": session.Scoring(),
			"ledger":  session.Entries(),
		})
	})

	r.Get("/api/metrics", func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		if cfg.Metrics == nil {
			writeJSON(w, nethttp.StatusOK, map[string]uint64{})
			return
		}
		writeJSON(w, nethttp.StatusOK, cfg.Metrics.Snapshot())
	})

	r.Group(func(admin chi.Router) {
		if cfg.AdminToken != "" {
			admin.Use(requireToken(cfg.AdminToken))
		}

		admin.Post("/api/match/start", func(w nethttp.ResponseWriter, req *nethttp.Request) {
			var body struct {
				Ammo   int                 `json:"ammo"`
				Roster []server.RosterSlot `json:"roster"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				nethttp.Error(w, "invalid body", nethttp.StatusBadRequest)
				return
			}
			if err := hub.StartMatch(body.Roster, body.Ammo); err != nil {
				nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
				return
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{
				"running": true,
				"ledger":  hub.Session().Entries(),
			})
		})

		admin.Post("/api/match/end", func(w nethttp.ResponseWriter, req *nethttp.Request) {
			var body struct {
				WinnerID string `json:"winnerId"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				nethttp.Error(w, "invalid body", nethttp.StatusBadRequest)
				return
			}
			ended := hub.EndMatch(body.WinnerID)
			writeJSON(w, nethttp.StatusOK, map[string]any{"ended": ended})
		})

		admin.Put("/api/match/scoring", func(w nethttp.ResponseWriter, req *nethttp.Request) {
			var table server.ScoringTable
			if err := json.NewDecoder(req.Body).Decode(&table); err != nil {
				nethttp.Error(w, "invalid body", nethttp.StatusBadRequest)
				return
			}
			hub.UpdateScoring(table)
			writeJSON(w, nethttp.StatusOK, table)
		})
	})

	return r
}

func requireToken(token string) func(nethttp.Handler) nethttp.Handler {
	return func(next nethttp.Handler) nethttp.Handler {
		return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, req *nethttp.Request) {
			if req.Header.Get("X-Admin-Token") != token {
				nethttp.Error(w, "forbidden", nethttp.StatusForbidden)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

func writeJSON(w nethttp.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
