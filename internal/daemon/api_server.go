package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"distill/internal/api"
	"distill/internal/config"
	"distill/internal/logging"
	"distill/internal/services"
	"distill/internal/tasks"
	"distill/internal/textutil"
	"distill/internal/workflow"
)

const (
	maxUploadBytes   = 512 << 20
	defaultListLimit = 50
)

type apiServer struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *tasks.Store
	runner *workflow.Runner

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, store *tasks.Store, runner *workflow.Runner, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("api bind address not configured")
	}

	srv := &apiServer{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "api-server"),
		store:  store,
		runner: runner,
	}

	auth := func(next http.HandlerFunc) http.HandlerFunc {
		return authMiddleware(cfg.Paths.APIToken, next)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", srv.handleHealth)
	mux.HandleFunc("/api/config", auth(srv.handleConfig))
	mux.HandleFunc("/api/process", auth(srv.handleProcess))
	mux.HandleFunc("/api/process/local", auth(srv.handleProcessLocal))
	mux.HandleFunc("/api/tasks", auth(srv.handleTasks))
	mux.HandleFunc("/api/tasks/", auth(srv.handleTask))

	srv.server = &http.Server{
		Handler:           srv.withRequestID(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Paths.APIBind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// withRequestID tags every request context with a short correlation id so
// handler logs can be tied to one call.
func (s *apiServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := services.WithRequestID(r.Context(), uuid.NewString()[:8])
		next.ServeHTTP(w, r.WithContext(ctx))
		logging.WithContext(ctx, s.logger).Debug("api request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
		)
	})
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return s.cfg.Paths.APIBind
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	summary, err := s.store.Health(r.Context())
	s.writeJSON(w, http.StatusOK, api.FromHealth(summary, err == nil))
}

func (s *apiServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	s.writeJSON(w, http.StatusOK, s.cfg.Redacted())
}

// handleProcess accepts a multipart upload and queues it for processing. The
// uploaded file lands in its own directory under the upload dir so original
// filenames survive without collisions.
func (s *apiServer) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart payload: "+err.Error(), services.KindValidation)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing file field", services.KindValidation)
		return
	}
	defer file.Close()

	name := textutil.SanitizeFileName(filepath.Base(header.Filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		s.writeError(w, http.StatusBadRequest, "upload has no usable filename", services.KindValidation)
		return
	}
	dir := filepath.Join(s.cfg.UploadDir(), tasks.NewID())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.writeError(w, http.StatusInternalServerError, "store upload: "+err.Error(), "")
		return
	}
	path := filepath.Join(dir, name)
	dst, err := os.Create(path)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "store upload: "+err.Error(), "")
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		_ = os.RemoveAll(dir)
		s.writeError(w, http.StatusBadRequest, "read upload: "+err.Error(), services.KindValidation)
		return
	}
	if err := dst.Close(); err != nil {
		s.writeError(w, http.StatusInternalServerError, "store upload: "+err.Error(), "")
		return
	}

	s.submit(w, r, path)
}

// handleProcessLocal queues a file already on the daemon's filesystem.
func (s *apiServer) handleProcessLocal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	if err := r.ParseForm(); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid form payload: "+err.Error(), services.KindValidation)
		return
	}
	path := strings.TrimSpace(r.FormValue("path"))
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "missing path parameter", services.KindValidation)
		return
	}
	s.submit(w, r, path)
}

func (s *apiServer) submit(w http.ResponseWriter, r *http.Request, path string) {
	opts := tasks.Options{
		Intent:       strings.TrimSpace(r.FormValue("intent")),
		DocType:      strings.TrimSpace(r.FormValue("doc_type")),
		OutputFormat: strings.TrimSpace(r.FormValue("output_format")),
		Provider:     strings.TrimSpace(r.FormValue("provider")),
	}
	task, err := s.runner.Submit(r.Context(), path, opts)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.SubmitResponse{Task: api.FromTask(task)})
}

func (s *apiServer) handleTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	limit := defaultListLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.writeError(w, http.StatusBadRequest, "invalid limit parameter", services.KindValidation)
			return
		}
		limit = parsed
	}
	records, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.TaskListResponse{Tasks: api.FromTasks(records)})
}

func (s *apiServer) handleTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "task not found", services.KindNotFound)
		return
	}
	task, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromTask(task))
}

// writeServiceError maps classified errors onto HTTP statuses. Everything
// else is a 500 with the bounded message.
func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	details := services.Details(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrUnsupportedInput):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrConfiguration):
		status = http.StatusConflict
	}
	s.writeError(w, status, details.Message, details.Kind)
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message, kind string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message, Kind: kind})
}
