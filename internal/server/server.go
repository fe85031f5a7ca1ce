// Package server exposes project import over HTTP for guildqd.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lherron/guildq/internal/domain"
	"github.com/lherron/guildq/internal/importer"
	"github.com/lherron/guildq/internal/logging"
	"github.com/sirupsen/logrus"
)

const defaultImportTimeout = 30 * time.Second

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Importer runs a project import.
type Importer interface {
	Import(ctx context.Context, in importer.Input, opts importer.Options) (*importer.Result, error)
}

// ProjectGetter resolves a project by id or name. A miss is (nil, nil).
type ProjectGetter interface {
	Get(ctx context.Context, identifier string) (*domain.Project, error)
}

// Options configures a Server.
type Options struct {
	Token         string
	ImportTimeout time.Duration
	Log           logrus.FieldLogger
}

// Server is the guildqd HTTP API.
type Server struct {
	importer Importer
	projects ProjectGetter
	token    string
	timeout  time.Duration
	log      logrus.FieldLogger
}

// New creates a Server.
func New(imp Importer, projects ProjectGetter, opts Options) *Server {
	s := &Server{
		importer: imp,
		projects: projects,
		token:    opts.Token,
		timeout:  opts.ImportTimeout,
		log:      opts.Log,
	}
	if s.timeout <= 0 {
		s.timeout = defaultImportTimeout
	}
	if s.log == nil {
		s.log = logging.Nop()
	}
	return s
}

// Handler returns the routed, authenticated handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/health", s.withAuth(s.handleHealth))
	mux.HandleFunc("/v1/projects/import", s.withAuth(s.handleProjectsImport))
	mux.HandleFunc("/v1/projects/get", s.withAuth(s.handleProjectsGet))
	return mux
}

func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" {
			token := r.Header.Get("Authorization")
			if strings.HasPrefix(token, "Bearer ") {
				token = strings.TrimPrefix(token, "Bearer ")
			}
			if token == "" {
				token = r.Header.Get("X-Guildqd-Token")
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) != 1 {
				s.writeJSON(w, http.StatusUnauthorized, errorBody{Kind: "unauthorized", Message: "unauthorized"})
				return
			}
		}

		next(w, r)
	}
}

type errorBody struct {
	Kind        string   `json:"kind"`
	Message     string   `json:"message"`
	Identifiers []string `json:"identifiers,omitempty"`
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return decoder.Decode(dst)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps domain error kinds onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	body := errorBody{
		Kind:        string(domain.KindOf(err)),
		Message:     err.Error(),
		Identifiers: domain.IdentifiersOf(err),
	}
	if status == http.StatusInternalServerError {
		s.log.WithError(err).Error("Request failed")
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
	}
	s.writeJSON(w, status, body)
}

func (s *Server) writeBadRequest(w http.ResponseWriter, err error) {
	s.writeJSON(w, http.StatusBadRequest, errorBody{Kind: "bad_request", Message: err.Error()})
}

func (s *Server) methodNotAllowed(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusMethodNotAllowed, errorBody{Kind: "method_not_allowed", Message: "method not allowed"})
}

// StatusFor returns the HTTP status for an import error.
func StatusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":   true,
		"time": time.Now().UTC().Format(time.RFC3339),
	})
}

type importRequest struct {
	importer.Input
	InitializeChannel bool `json:"initialize_channel,omitempty"`
}

type importResponse struct {
	Project      *domain.Project `json:"project"`
	Created      bool            `json:"created"`
	ChannelError string          `json:"channel_error,omitempty"`
}

func (s *Server) handleProjectsImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}

	var req importRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeBadRequest(w, fmt.Errorf("invalid import body: %w", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	res, err := s.importer.Import(ctx, req.Input, importer.Options{InitializeChannel: req.InitializeChannel})
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := importResponse{Project: res.Project, Created: res.Created}
	if res.ChannelErr != nil {
		resp.ChannelError = res.ChannelErr.Error()
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	s.writeJSON(w, status, resp)
}

type projectsGetRequest struct {
	Identifier string `json:"identifier"`
}

func (s *Server) handleProjectsGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}

	var req projectsGetRequest
	if err := s.decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.writeBadRequest(w, err)
		return
	}
	if strings.TrimSpace(req.Identifier) == "" {
		s.writeBadRequest(w, fmt.Errorf("identifier is required"))
		return
	}

	project, err := s.projects.Get(r.Context(), req.Identifier)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if project == nil {
		s.writeError(w, domain.NotFoundError([]string{req.Identifier}, "Project not found for identifier %s", req.Identifier))
		return
	}

	s.writeJSON(w, http.StatusOK, project)
}
