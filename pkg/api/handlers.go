package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gatherlens/gatherlens/pkg/capture"
	glerrors "github.com/gatherlens/gatherlens/pkg/errors"
	"github.com/gatherlens/gatherlens/pkg/serializer"
	"github.com/gatherlens/gatherlens/pkg/server"
	"github.com/gatherlens/gatherlens/pkg/service"
	"github.com/gatherlens/gatherlens/pkg/uri"
)

type handlers struct {
	svc *service.Service
}

// routes maps ServeMux patterns to handlers for the capture API.
func routes(svc *service.Service) map[string]http.HandlerFunc {
	h := &handlers{svc: svc}
	return map[string]http.HandlerFunc{
		"POST /v1/captures":        h.handleParse,
		"GET /v1/captures":         h.handleList,
		"GET /v1/captures/{id}":    h.handleGet,
		"DELETE /v1/captures/{id}": h.handleEvict,

		"GET /v1/captures/{id}/resources/{type}": h.handleResources,

		"GET /v1/captures/{id}/analysis":         h.handleAnalyzeAll,
		"GET /v1/captures/{id}/analysis/cluster": h.handleAnalyzeCluster,
		"GET /v1/captures/{id}/analysis/nodes":   h.handleAnalyzeNodes,
		"GET /v1/captures/{id}/analysis/pods":    h.handleAnalyzePods,
	}
}

// captureView is the API representation of a stored capture.
type captureView struct {
	ID          string              `json:"id"`
	URI         string              `json:"uri"`
	Source      string              `json:"source"`
	ExtractedAt time.Time           `json:"extractedAt"`
	SizeBytes   int64               `json:"sizeBytes"`
	ClusterInfo capture.ClusterInfo `json:"clusterInfo"`
	Summary     capture.Summary     `json:"summary"`
}

func viewOf(c *capture.Capture) captureView {
	return captureView{
		ID:          c.ID,
		URI:         uri.Ref{CaptureID: c.ID}.String(),
		Source:      c.Source,
		ExtractedAt: c.ExtractedAt,
		SizeBytes:   c.SizeBytes,
		ClusterInfo: c.ClusterInfo,
		Summary:     c.Summarize(),
	}
}

type parseRequest struct {
	Source string `json:"source"`
}

func (h *handlers) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.WriteError(w, r, http.StatusBadRequest, glerrors.ErrCodeInvalidRequest,
			"request body must be JSON with a source field", false, nil)
		return
	}
	if req.Source == "" {
		server.WriteError(w, r, http.StatusBadRequest, glerrors.ErrCodeInvalidRequest,
			"source is required", false, nil)
		return
	}

	c, err := h.svc.ParseCapture(r.Context(), req.Source)
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "failed to parse capture",
			map[string]interface{}{"source": req.Source})
		return
	}

	serializer.RespondJSON(w, http.StatusCreated, viewOf(c))
}

func (h *handlers) handleList(w http.ResponseWriter, r *http.Request) {
	captures := h.svc.ListCaptures()
	views := make([]captureView, 0, len(captures))
	for _, c := range captures {
		views = append(views, viewOf(c))
	}
	serializer.RespondJSON(w, http.StatusOK, struct {
		Captures []captureView `json:"captures"`
	}{Captures: views})
}

func (h *handlers) handleGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetCapture(r.PathValue("id"))
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "failed to load capture", nil)
		return
	}

	resp := struct {
		captureView
		Warnings []string               `json:"warnings,omitempty"`
		Failures []capture.ParseFailure `json:"failures,omitempty"`
	}{
		captureView: viewOf(c),
		Warnings:    c.Warnings,
		Failures:    c.Failures,
	}
	serializer.RespondJSON(w, http.StatusOK, resp)
}

func (h *handlers) handleEvict(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.EvictCapture(r.PathValue("id")); err != nil {
		server.WriteErrorFromErr(w, r, err, "failed to evict capture", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) handleResources(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	resourceType := r.PathValue("type")
	namespace := r.URL.Query().Get("namespace")

	if name := r.URL.Query().Get("name"); name != "" {
		rec, err := h.svc.GetResource(id, resourceType, namespace, name)
		if err != nil {
			server.WriteErrorFromErr(w, r, err, "failed to load resource", nil)
			return
		}
		serializer.RespondJSON(w, http.StatusOK, rec)
		return
	}

	recs, err := h.svc.GetResources(id, resourceType, namespace)
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "failed to load resources", nil)
		return
	}
	serializer.RespondJSON(w, http.StatusOK, struct {
		Resources []*capture.ResourceRecord `json:"resources"`
	}{Resources: recs})
}

func (h *handlers) handleAnalyzeAll(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.AnalyzeAll(r.Context(), r.PathValue("id"))
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "analysis failed", nil)
		return
	}
	serializer.RespondJSON(w, http.StatusOK, rep)
}

func (h *handlers) handleAnalyzeCluster(w http.ResponseWriter, r *http.Request) {
	actionableOnly := queryBool(r, "actionable_only")
	rep, err := h.svc.AnalyzeClusterHealth(r.Context(), r.PathValue("id"), actionableOnly)
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "cluster analysis failed", nil)
		return
	}
	serializer.RespondJSON(w, http.StatusOK, rep)
}

func (h *handlers) handleAnalyzeNodes(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.AnalyzeNodes(r.Context(), r.PathValue("id"), r.URL.Query().Get("node"))
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "node analysis failed", nil)
		return
	}
	serializer.RespondJSON(w, http.StatusOK, rep)
}

func (h *handlers) handleAnalyzePods(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.AnalyzePods(r.Context(), r.PathValue("id"),
		r.URL.Query().Get("namespace"), queryBool(r, "include_logs"))
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "pod analysis failed", nil)
		return
	}
	serializer.RespondJSON(w, http.StatusOK, rep)
}

func queryBool(r *http.Request, key string) bool {
	b, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && b
}
