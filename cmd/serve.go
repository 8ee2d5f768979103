package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lispendens-cli/internal/model"
	"github.com/sells-group/lispendens-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the filing intake server",
	Long:  "Serves the intake API for upstream scrapers: POST /api/filings enqueues a batch and processes it off-request, GET /api/runs exposes run history.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		router := buildRouter(ctx, env.Store, env.Pipeline.Process, cfg.Server.APIKey, cfg.Batch.Concurrency)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// buildRouter wires the intake API. baseCtx is the server's lifetime context;
// intake processing kicked off by a request outlives the request but not the
// server. An empty apiKey leaves the intake route open.
func buildRouter(baseCtx context.Context, st store.Store, process processFunc, apiKey string, concurrency int) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.With(requireKey(apiKey)).Post("/filings", handleEnqueue(baseCtx, st, process, concurrency))
		r.Get("/runs", handleListRuns(st))
		r.Get("/runs/{id}", handleGetRun(st))
	})

	return r
}

// requireKey checks the Authorization header against the configured intake
// key. An empty key disables the check.
func requireKey(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey != "" && r.Header.Get("Authorization") != "Bearer "+apiKey {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func handleEnqueue(baseCtx context.Context, st store.Store, process processFunc, concurrency int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var filings []model.Filing
		if err := json.NewDecoder(r.Body).Decode(&filings); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if len(filings) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no filings in request"})
			return
		}

		var queued []model.QueuedFiling
		var duplicate int
		for _, f := range filings {
			f.County = strings.ToLower(f.County)
			if f.DocumentNumber == "" || f.County == "" || f.GranteeBlock == "" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document_number, county, and grantee_block are required"})
				return
			}
			created, err := st.UpsertFiling(r.Context(), f)
			if err != nil {
				zap.L().Error("intake enqueue failed",
					zap.String("document", f.DocumentNumber),
					zap.Error(err),
				)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "enqueue failed"})
				return
			}
			if created {
				queued = append(queued, model.QueuedFiling{Filing: f})
			} else {
				duplicate++
			}
		}

		if len(queued) > 0 && process != nil {
			// Drain the new filings off-request; the batch command picks up
			// anything this misses.
			go processFilings(baseCtx, queued, concurrency, process)
		}

		writeJSON(w, http.StatusAccepted, map[string]int{"queued": len(queued), "duplicate": duplicate})
	}
}

func handleListRuns(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		if limit <= 0 || limit > 500 {
			limit = 50
		}

		runs, err := st.ListRuns(r.Context(), store.RunFilter{
			Status: model.RunStatus(q.Get("status")),
			County: q.Get("county"),
			Limit:  limit,
		})
		if err != nil {
			zap.L().Error("list runs failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list runs failed"})
			return
		}
		if runs == nil {
			runs = []model.Run{}
		}
		writeJSON(w, http.StatusOK, runs)
	}
}

func handleGetRun(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := st.GetRun(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if strings.Contains(err.Error(), "not found") {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
				return
			}
			zap.L().Error("get run failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "get run failed"})
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
