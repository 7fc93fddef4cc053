package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/imbue-digital/visibility-cli/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard ranking API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]string{"status": "ok"})
		})

		r.Get("/ranking", rankingHandler(env))

		r.Get("/cache/stats", func(w http.ResponseWriter, r *http.Request) {
			if env.Mem != nil {
				writeJSON(w, env.Mem.Stats())
				return
			}
			writeJSON(w, map[string]string{"driver": cfg.Cache.Driver})
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
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

// rankingResponse is the dashboard wire shape. The endpoint always answers
// 200: upstream trouble shows up in the live/isFallback flags, never as an
// error status the widget would have to special-case.
type rankingResponse struct {
	Success     bool            `json:"success"`
	Live        bool            `json:"live"`
	IsFallback  bool            `json:"isFallback"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Entities    []rankingEntity `json:"entities"`
	SubjectRank *int            `json:"subjectRank"`
}

type rankingEntity struct {
	DisplayName     string  `json:"displayName"`
	CanonicalDomain *string `json:"canonicalDomain"`
	IsSubject       bool    `json:"isSubject"`
	Rating          float64 `json:"rating"`
	ReviewCount     int     `json:"reviewCount"`
	CompositeScore  *int    `json:"compositeScore"`
	Rank            *int    `json:"rank"`
}

func rankingHandler(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// The snapshot key is fixed per deployment; an unexpected subject
		// key still gets the configured dashboard's ranking.
		if sub := r.URL.Query().Get("subject"); sub != "" && sub != cfg.Cache.Key {
			zap.L().Debug("ranking request for non-default subject key",
				zap.String("subject", sub),
			)
		}

		snapshot, live := env.Engine.Ranking(r.Context())

		includeCompetitors := true
		if v := r.URL.Query().Get("competitors"); v == "false" {
			includeCompetitors = false
		}

		writeJSON(w, toResponse(snapshot, live, includeCompetitors))
	}
}

func toResponse(snapshot model.RankingSnapshot, live bool, includeCompetitors bool) rankingResponse {
	resp := rankingResponse{
		Success:     true,
		Live:        live && !snapshot.Stale && !snapshot.IsFallback,
		IsFallback:  snapshot.IsFallback,
		GeneratedAt: snapshot.GeneratedAt,
		Entities:    make([]rankingEntity, 0, len(snapshot.Entities)),
		SubjectRank: snapshot.SubjectRank,
	}

	for _, e := range snapshot.Entities {
		if !includeCompetitors && !e.IsSubject {
			continue
		}
		resp.Entities = append(resp.Entities, rankingEntity{
			DisplayName:     e.DisplayName,
			CanonicalDomain: e.CanonicalDomain,
			IsSubject:       e.IsSubject,
			Rating:          e.Rating,
			ReviewCount:     e.ReviewCount,
			CompositeScore:  e.CompositeScore,
			Rank:            e.Rank,
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("writing response", zap.Error(err))
	}
}
