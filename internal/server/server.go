// Package server exposes the web surface: upload staging, the websocket
// progress channel, artifact download, job history, host stats, and
// metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	_ "embed"

	"obfuscator/internal/job"
	"obfuscator/internal/metrics"
	"obfuscator/internal/stats"
)

const (
	maxUploadSize     = 10 << 20 // 10MB
	readHeaderTimeout = 10 * time.Second
)

//go:embed index.html
var indexHTML []byte

// JobRunner starts one job and reports its progress into the sink.
type JobRunner interface {
	Run(ctx context.Context, req job.Request, sink job.Sink) error
}

// JobHistory lists recent job records.
type JobHistory interface {
	Recent(ctx context.Context, limit int) ([]job.Record, error)
}

// Server is the HTTP front of the obfuscation service.
type Server struct {
	host    string
	port    int
	uploads string
	outputs string
	runner  JobRunner
	history JobHistory // optional
	logger  *slog.Logger
	server  *http.Server

	mu      sync.RWMutex
	clients map[string]*wsClient
}

type Config struct {
	Host      string
	Port      int
	UploadDir string
	OutputDir string
	Runner    JobRunner
	History   JobHistory
	Logger    *slog.Logger
}

func New(cfg Config) *Server {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{
		host:    cfg.Host,
		port:    cfg.Port,
		uploads: cfg.UploadDir,
		outputs: cfg.OutputDir,
		runner:  cfg.Runner,
		history: cfg.History,
		logger:  cfg.Logger,
		clients: make(map[string]*wsClient),
	}
}

// Handler builds the route table. Exposed separately so tests can drive it
// through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /download/{name}", s.handleDownload)
	mux.HandleFunc("GET /api/jobs", s.handleJobs)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /metrics", metrics.Default.Handler())
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	s.logger.Info("server started", "addr", "http://"+addr)

	go func() {
		<-ctx.Done()
		s.closeAllClients()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	name := fmt.Sprintf("%d_%s", time.Now().UnixMilli(), SanitizeFilename(header.Filename))
	path := filepath.Join(s.uploads, name)

	out, err := os.Create(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cannot store upload: "+err.Error())
		return
	}
	written, err := io.Copy(out, io.LimitReader(file, maxUploadSize))
	out.Close()
	if err != nil {
		os.Remove(path)
		writeError(w, http.StatusInternalServerError, "cannot store upload: "+err.Error())
		return
	}

	s.logger.Info("file uploaded", "file", name, "bytes", written)
	writeJSON(w, http.StatusOK, map[string]string{"file": name})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	// Artifact names never contain path separators; reject anything that
	// would escape the output directory.
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		http.NotFound(w, r)
		return
	}
	path := filepath.Join(s.outputs, name)
	if _, err := os.Stat(path); err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename="+name)
	http.ServeFile(w, r, path)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, []job.Record{})
		return
	}
	records, err := s.history.Recent(r.Context(), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cannot list jobs: "+err.Error())
		return
	}
	if records == nil {
		records = []job.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stats.Collect(r.Context()))
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename strips everything but alphanumerics, underscore, dash,
// and dot from an uploaded filename.
func SanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, ".")
	if name == "" {
		name = "upload.js"
	}
	return name
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
