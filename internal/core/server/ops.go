package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/solatis/rulebuilder/internal/editor"
	"github.com/solatis/rulebuilder/internal/types"
)

// Pinger reports database reachability; *sqlx.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// OpsService serves metrics, health and a read-only catalog view over HTTP.
type OpsService struct {
	db       Pinger
	sessions func() int
	attrs    editor.Attributes
	ops      editor.Operators
	chi.Router
}

// NewOpsService builds the ops router. db and sessions may be nil.
func NewOpsService(db Pinger, sessions func() int, attrs editor.Attributes, ops editor.Operators) *OpsService {
	s := &OpsService{db: db, sessions: sessions, attrs: attrs, ops: ops, Router: chi.NewRouter()}
	s.Get("/metrics", promhttp.Handler().ServeHTTP)
	s.Get("/healthz", s.handleHealth)
	s.Get("/readyz", s.handleReady)
	s.Get("/catalog/{workspace}/{rule}", s.handleCatalog)
	return s
}

type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Error    string `json:"error,omitempty"`
}

func (s *OpsService) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if s.sessions != nil {
		resp.Sessions = s.sessions()
	}
	render.JSON(w, r, resp)
}

func (s *OpsService) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, healthResponse{Status: "unavailable", Error: err.Error()})
			return
		}
	}
	render.JSON(w, r, healthResponse{Status: "ready"})
}

// catalogAttribute lists an attribute with the operators its data type
// offers; DefaultOperators is the attribute's own hint from the catalog.
type catalogAttribute struct {
	Name             string                     `json:"name"`
	DataType         types.DataType             `json:"data_type"`
	Scope            types.Scope                `json:"source_type"`
	DefaultOperators []string                   `json:"default_operators,omitempty"`
	Operators        []types.OperatorDescriptor `json:"operators"`
}

type catalogResponse struct {
	Attributes []catalogAttribute `json:"attributes"`
}

func (s *OpsService) handleCatalog(w http.ResponseWriter, r *http.Request) {
	cc := types.CatalogContext{
		Workspace: chi.URLParam(r, "workspace"),
		Rule:      chi.URLParam(r, "rule"),
	}

	attrs := s.attrs.Load(r.Context(), cc)
	resp := catalogResponse{Attributes: make([]catalogAttribute, 0, len(attrs))}
	for _, a := range attrs {
		resp.Attributes = append(resp.Attributes, catalogAttribute{
			Name:             a.Name,
			DataType:         a.DataType,
			Scope:            a.Scope,
			DefaultOperators: a.DefaultOperators,
			Operators:        s.ops.LoadFor(r.Context(), a.DataType),
		})
	}
	render.JSON(w, r, resp)
}

// OpsServer runs the ops router on its own port.
type OpsServer struct {
	server *http.Server
}

// NewOpsServer creates an HTTP server for handler on host:port.
func NewOpsServer(host string, port int, handler http.Handler) *OpsServer {
	return &OpsServer{server: &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Start serves until Shutdown; a clean shutdown returns nil.
func (s *OpsServer) Start() error {
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ops server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx ends.
func (s *OpsServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
