package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fontintel/fontintel/internal/ingest"
	"github.com/fontintel/fontintel/internal/store"
	"github.com/fontintel/fontintel/internal/taxonomy"
)

// ownerHeader carries the uploading owner's ID.
const ownerHeader = "X-Owner-ID"

const multipartMemory = 32 << 20

// multipartOverhead is the headroom above the file limit allowed for
// multipart framing and small form fields.
const multipartOverhead = 1 << 20

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the upload intake server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, live)
		if err != nil {
			return err
		}
		defer env.Close()

		srvCfg := live.Current().Server
		port := servePort
		if port == 0 {
			port = srvCfg.Port
		}

		api := newServer(ctx, env, func() int64 { return live.Current().Pipeline.MaxFileBytes })
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           api.routes(srvCfg.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		api.wait()
		return nil
	},
}

// server handles uploads. Accepted files run in the background; runs outlive
// the request but not the process.
type server struct {
	ctx          context.Context
	env          *pipelineEnv
	maxFileBytes func() int64
	runs         sync.WaitGroup
}

func newServer(ctx context.Context, env *pipelineEnv, maxFileBytes func() int64) *server {
	return &server{ctx: ctx, env: env, maxFileBytes: maxFileBytes}
}

// wait blocks until every background run has finished.
func (s *server) wait() { s.runs.Wait() }

func (s *server) routes(origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", ownerHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/ingests", s.handleUpload)
		r.Get("/ingests", s.handleList)
		r.Get("/ingests/{processingID}", s.handleStatus)
		r.Get("/admission", s.handleAdmission)
	})
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.env == nil {
		writeError(w, http.StatusServiceUnavailable, "pipeline not configured")
		return
	}
	owner := r.Header.Get(ownerHeader)
	if owner == "" {
		writeError(w, http.StatusBadRequest, ownerHeader+" header is required")
		return
	}
	limit := s.maxFileBytes()
	if limit <= 0 {
		limit = ingest.DefaultMaxFileBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close() //nolint:errcheck

	// One byte past the limit is enough for intake to quarantine the file.
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file")
		return
	}

	receipt, err := s.env.Service.Accept(r.Context(), ingest.Submission{
		Owner:    owner,
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The background run mutates the record, so the response is built first.
	body := map[string]any{
		"processing_id": receipt.Record.ProcessingID,
		"upload_state":  receipt.Record.UploadState,
		"job_outcome":   receipt.Record.JobOutcome,
		"duplicate":     receipt.Duplicate,
		"error_code":    receipt.Record.ErrorCode,
	}
	status := http.StatusAccepted
	switch {
	case receipt.Duplicate:
		status = http.StatusOK
	case receipt.Record.UploadState == taxonomy.StateQuarantined:
		status = http.StatusUnprocessableEntity
	case receipt.Runnable():
		s.runs.Add(1)
		go func() {
			defer s.runs.Done()
			s.env.Service.Run(context.WithoutCancel(s.ctx), receipt)
			zap.L().Info("upload processed",
				zap.String("processing_id", receipt.Record.ProcessingID),
				zap.String("upload_state", string(receipt.Record.UploadState)),
			)
		}()
	}

	writeJSON(w, status, body)
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.env == nil {
		writeError(w, http.StatusServiceUnavailable, "pipeline not configured")
		return
	}
	status, err := loadStatus(r.Context(), s.env.Store, chi.URLParam(r, "processingID"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		zap.L().Error("status lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *server) handleList(w http.ResponseWriter, r *http.Request) {
	if s.env == nil {
		writeError(w, http.StatusServiceUnavailable, "pipeline not configured")
		return
	}
	q := r.URL.Query()
	filter := store.IngestFilter{OwnerID: q.Get("owner"), State: taxonomy.UploadState(q.Get("state"))}
	if filter.State != "" && !filter.State.Valid() {
		writeError(w, http.StatusBadRequest, "unknown state")
		return
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}
	recs, err := s.env.Store.ListIngests(r.Context(), filter)
	if err != nil {
		zap.L().Error("list ingests failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ingests": recs})
}

func (s *server) handleAdmission(w http.ResponseWriter, r *http.Request) {
	if s.env == nil {
		writeError(w, http.StatusServiceUnavailable, "pipeline not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"active": s.env.Admission.Active(r.Context()),
		"limit":  live.Current().Admission.Limit,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
