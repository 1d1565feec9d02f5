package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/dataqualityagent/data-quality-agent/internal/engine"
	"github.com/dataqualityagent/data-quality-agent/internal/profiler"
	"github.com/dataqualityagent/data-quality-agent/internal/rules"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Service   string    `json:"service"`
}

type RulesResponse struct {
	Count int                 `json:"count"`
	Rules []rules.RuleSummary `json:"rules"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   s.version,
		Service:   serviceName,
	})
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, RulesResponse{
		Count: s.catalog.Len(),
		Rules: s.catalog.Summary(),
	})
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	id := strings.ToUpper(chi.URLParam(r, "id"))

	rule, ok := s.catalog.RuleByID(id)
	if !ok {
		s.renderError(w, r, http.StatusNotFound, fmt.Sprintf("rule %s not found", id))
		return
	}
	render.JSON(w, r, rule)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	profile, ok := s.profileFromUpload(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, profile)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	profile, ok := s.profileFromUpload(w, r)
	if !ok {
		return
	}

	// Engines keep per-run state, so each request gets its own.
	report, err := engine.New(s.cfg, s.catalog).Analyze(profile)
	if err != nil {
		s.renderError(w, r, http.StatusUnprocessableEntity, fmt.Sprintf("failed to analyze dataset: %v", err))
		return
	}
	render.JSON(w, r, report)
}

// profileFromUpload reads the multipart "file" field and profiles it. On
// failure it renders the error response itself and reports ok=false.
func (s *Server) profileFromUpload(w http.ResponseWriter, r *http.Request) (*profiler.DatasetProfile, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.renderError(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds the %d MB limit", s.cfg.Server.MaxUploadMB))
			return nil, false
		}
		s.renderError(w, r, http.StatusBadRequest, "missing file upload field 'file'")
		return nil, false
	}
	defer file.Close()

	dataset, err := profiler.LoadFrom(file)
	if err != nil {
		s.renderError(w, r, http.StatusUnprocessableEntity, fmt.Sprintf("failed to parse CSV: %v", err))
		return nil, false
	}

	profile, err := profiler.NewFromDataset(dataset).GenerateProfile()
	if err != nil {
		s.renderError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to profile dataset: %v", err))
		return nil, false
	}
	profile.FilePath = header.Filename

	return profile, true
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: message})
}
