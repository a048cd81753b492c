package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/livingcodex/codex/internal/codex/core"
	"github.com/livingcodex/codex/internal/codex/store"
	"github.com/livingcodex/codex/pkg/codex"
)

// componentHeader identifies the calling component for access accounting.
const componentHeader = "X-Codex-Component"

// Saver persists the current store state on demand.
type Saver interface {
	SaveNow(r *http.Request) error
}

// Server holds the HTTP server dependencies.
type Server struct {
	codex *codex.Codex
	saver Saver
	log   zerolog.Logger
}

// New creates a new API server. saver may be nil when the daemon runs
// without a persistence backend.
func New(cx *codex.Codex, saver Saver, log zerolog.Logger) *Server {
	return &Server{codex: cx, saver: saver, log: log}
}

func component(r *http.Request) string {
	if c := r.Header.Get(componentHeader); c != "" {
		return c
	}
	return "api"
}

// writeError maps store errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case core.IsNotFound(err):
		status = http.StatusNotFound
	case core.IsCollision(err):
		status = http.StatusConflict
	case core.IsCycle(err), core.IsInvalidReference(err):
		status = http.StatusUnprocessableEntity
	case core.IsInvalidMetadata(err):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// CreateNodeRequest is the request body for creating a node.
type CreateNodeRequest struct {
	Type     string         `json:"type"`
	Name     string         `json:"name"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	ParentID string         `json:"parent_id"`
}

// CreateNodeResponse is the response for creating a node.
type CreateNodeResponse struct {
	ID        string `json:"id"`
	Duplicate bool   `json:"duplicate"`
}

// CreateNode handles POST /api/nodes
func (s *Server) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req CreateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Type == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "type and name are required"})
		return
	}

	id, duplicate, err := s.codex.Create(req.Type, req.Name, req.Content, req.Metadata, req.ParentID, component(r))
	if err != nil {
		s.writeError(w, err)
		return
	}

	status := http.StatusCreated
	if duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, CreateNodeResponse{ID: id, Duplicate: duplicate})
}

// GetNode handles GET /api/nodes/{id}
func (s *Server) GetNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	node, err := s.codex.Get(id, component(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// UpdateNodeRequest is the request body for updating a node. Omitted
// fields keep their current values; metadata replaces wholesale.
type UpdateNodeRequest struct {
	Content  *string        `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// UpdateNode handles PUT /api/nodes/{id}
func (s *Server) UpdateNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	node, err := s.codex.Update(id, req.Content, req.Metadata, component(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// DeleteNode handles DELETE /api/nodes/{id}
func (s *Server) DeleteNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.codex.Delete(id, component(r)); err != nil {
		s.writeError(w, err)
		return
	}

	// A node that still had children stays behind as a tombstone.
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         id,
		"tombstoned": s.codex.Tombstoned(id),
	})
}

// ListNodes handles GET /api/nodes
// Optional query params narrow the listing: ?type=T, or ?tag_key=K&tag_value=V.
func (s *Server) ListNodes(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	caller := component(r)

	var ids []string
	switch {
	case query.Get("type") != "":
		ids = s.codex.QueryByType(query.Get("type"), caller)
	case query.Get("tag_key") != "":
		ids = s.codex.QueryByTag(query.Get("tag_key"), query.Get("tag_value"), caller)
	default:
		ids = make([]string, 0)
		for node := range s.codex.ListAll() {
			ids = append(ids, node.ID)
		}
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes": ids,
		"count": len(ids),
	})
}

// GetNetwork handles GET /api/nodes/{id}/network
// Supports query params: ?depth=N and ?fanout=N.
func (s *Server) GetNetwork(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	query := r.URL.Query()

	depth := store.DefaultMaxAncestorDepth
	if d := query.Get("depth"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid depth parameter"})
			return
		}
		depth = parsed
	}

	fanout := store.DefaultMaxFanout
	if f := query.Get("fanout"); f != "" {
		parsed, err := strconv.Atoi(f)
		if err != nil || parsed < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid fanout parameter"})
			return
		}
		fanout = parsed
	}

	network, err := s.codex.GetNetwork(id, depth, fanout)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, network)
}

// AddChildRequest is the request body for attaching a child node.
type AddChildRequest struct {
	ChildID string `json:"child_id"`
}

// AddChild handles POST /api/nodes/{id}/children
func (s *Server) AddChild(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req AddChildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.ChildID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "child_id is required"})
		return
	}

	if err := s.codex.AddChild(id, req.ChildID); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"parent_id": id,
		"child_id":  req.ChildID,
	})
}

// CreateLinkRequest is the request body for creating a link.
type CreateLinkRequest struct {
	Source         string `json:"source"`
	Target         string `json:"target"`
	Label          string `json:"label"`
	OneDirectional bool   `json:"one_directional"`
}

// CreateLink handles POST /api/links
func (s *Server) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Source == "" || req.Target == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "source and target are required"})
		return
	}

	linkID, err := s.codex.AddLink(req.Source, req.Target, req.Label, req.OneDirectional)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": linkID})
}

// Search handles GET /api/search
// Query params: q (required), field (name|content|tag), type, tag_key, tag_value.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	caller := component(r)

	if nodeType := query.Get("type"); nodeType != "" {
		nodes := s.codex.QueryByType(nodeType, caller)
		writeJSON(w, http.StatusOK, map[string]any{"nodes": nodes, "count": len(nodes)})
		return
	}

	if key := query.Get("tag_key"); key != "" {
		nodes := s.codex.QueryByTag(key, query.Get("tag_value"), caller)
		writeJSON(w, http.StatusOK, map[string]any{"nodes": nodes, "count": len(nodes)})
		return
	}

	q := query.Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query parameter 'q' is required"})
		return
	}

	nodes, err := s.codex.Search(q, query.Get("field"), caller)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes": nodes,
		"count": len(nodes),
		"query": q,
	})
}

// GetMetrics handles GET /api/metrics
func (s *Server) GetMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.codex.MetricsSnapshot())
}

// Export handles GET /api/export
func (s *Server) Export(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="codex-snapshot.json"`)
	if err := s.codex.Export(w); err != nil {
		s.log.Error().Err(err).Msg("exporting snapshot")
	}
}

// Import handles POST /api/import
func (s *Server) Import(w http.ResponseWriter, r *http.Request) {
	if err := s.codex.Import(r.Body); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"imported":    true,
		"total_nodes": s.codex.MetricsSnapshot().TotalNodes,
	})
}

// Save handles POST /api/save
func (s *Server) Save(w http.ResponseWriter, r *http.Request) {
	if s.saver == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no persistence backend configured"})
		return
	}
	if err := s.saver.SaveNow(r); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// Verify handles GET /api/verify
func (s *Server) Verify(w http.ResponseWriter, r *http.Request) {
	mismatched := s.codex.Verify()
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         len(mismatched) == 0,
		"mismatched": mismatched,
	})
}

// HealthCheck handles GET /health
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
