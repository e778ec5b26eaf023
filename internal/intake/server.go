package intake

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/catset/pkg/core"
)

//go:embed form.html
var formHTML string

var formTemplate = template.Must(template.New("form").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(formHTML))

const (
	// maxBodyBytes bounds a submission request body.
	maxBodyBytes = 1 << 20
	// maxListLimit bounds the page size of GET /entries.
	maxListLimit = 1000
)

// Backend is what the server needs from the runtime.
type Backend interface {
	Submitter
	Entries(ctx context.Context) ([]core.Entry, error)
	Stats(ctx context.Context) (core.Stats, error)
}

// Server handles HTTP requests for the dataset intake.
type Server struct {
	backend Backend
	dataset string
	addr    string
	logger  *slog.Logger
}

// NewServer creates a new intake server. dataset is only displayed.
func NewServer(b Backend, dataset, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{backend: b, dataset: dataset, addr: addr, logger: logger}
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// HTML form
	mux.HandleFunc("GET /{$}", s.showForm)
	mux.HandleFunc("POST /{$}", s.submitForm)

	// Entries
	mux.HandleFunc("GET /entries", s.listEntries)
	mux.HandleFunc("POST /entries", s.addEntry)

	mux.HandleFunc("GET /stats", s.stats)

	// Health check
	mux.HandleFunc("GET /health", s.health)

	return withRequestID(withCORS(mux))
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("intake server listening", "addr", s.addr, "dataset", s.dataset)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("intake server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down intake server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// withCORS adds CORS headers for browser clients.
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

type requestIDKey struct{}

// withRequestID tags every request with an ID, reusing the client's when it
// sent one.
func withRequestID(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		h.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return id
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type formPage struct {
	Dataset string
	Count   int
	Outcome *Outcome
	Code    string
	Comment string
}

func (s *Server) showForm(w http.ResponseWriter, r *http.Request) {
	s.renderForm(w, r, formPage{})
}

func (s *Server) submitForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	sub := Submission{Code: r.PostFormValue("code"), Comment: r.PostFormValue("comment")}
	out := s.process(r, sub)

	page := formPage{Outcome: &out}
	if !out.OK {
		// Keep the input so the user can fix it.
		page.Code, page.Comment = sub.Code, sub.Comment
	}
	s.renderForm(w, r, page)
}

func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, page formPage) {
	page.Dataset = s.dataset
	if entries, err := s.backend.Entries(r.Context()); err == nil {
		page.Count = len(entries)
	} else {
		s.logger.Warn("failed to count entries", "error", err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := formTemplate.Execute(w, page); err != nil {
		s.logger.Error("failed to render form", "error", err)
	}
}

func (s *Server) addEntry(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var sub Submission
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		sub.Code = r.FormValue("code")
		sub.Comment = r.FormValue("comment")
	default:
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	out := s.process(r, sub)
	status := http.StatusCreated
	if !out.OK {
		status = statusFor(out)
	}
	writeJSON(w, status, out)
}

// process runs the pipeline and logs the outcome.
func (s *Server) process(r *http.Request, sub Submission) Outcome {
	out := Process(r.Context(), s.backend, sub)
	s.logger.Info("submission processed",
		"request", requestID(r),
		"stage", out.Stage,
		"message", out.Message,
	)
	return out
}

func statusFor(out Outcome) int {
	switch out.Stage {
	case StageValidate:
		return http.StatusBadRequest
	case StageTokenize:
		return http.StatusUnprocessableEntity
	case StageTag:
		return http.StatusBadGateway
	case StageStore:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	limit := 20
	offset := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = min(n, maxListLimit)
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			offset = n
		}
	}

	entries, err := s.backend.Entries(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	total := len(entries)
	page := []core.Entry{}
	if offset < total {
		page = entries[offset : offset+min(limit, total-offset)]
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": page,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.backend.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	top := 10
	if n, err := strconv.Atoi(r.URL.Query().Get("top")); err == nil && n > 0 {
		top = n
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"dataset":    s.dataset,
		"entries":    st.Entries,
		"tokens":     st.Tokens,
		"misaligned": st.Misaligned,
		"top_tags":   st.TopTags(top),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
