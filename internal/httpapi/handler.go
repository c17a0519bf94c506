// Package httpapi is the thin HTTP front over the sandbox service. It
// only translates between JSON and the service contract; admission,
// quotas and execution semantics all live below it.
package httpapi

import (
	"execbox/internal/sandbox"
	"execbox/internal/sandbox/spec"
	"execbox/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// Handler exposes the sandbox service over HTTP.
type Handler struct {
	svc sandbox.Service
}

// NewHandler creates a new handler.
func NewHandler(svc sandbox.Service) *Handler {
	return &Handler{svc: svc}
}

// Register attaches the routes.
func (h *Handler) Register(r *gin.Engine) {
	v1 := r.Group("/api/v1")
	v1.POST("/executions", h.Execute)
	v1.GET("/languages", h.Languages)
	r.GET("/healthz", h.Health)
}

type executeRequest struct {
	Language   string `json:"language" binding:"required"`
	SourceCode string `json:"sourceCode" binding:"required"`
	Stdin      string `json:"stdin"`
	CallerID   string `json:"callerId" binding:"required"`
}

// Execute submits one execution request and waits for its result.
func (h *Handler) Execute(c *gin.Context) {
	var body executeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	res, err := h.svc.Submit(c.Request.Context(), spec.ExecutionRequest{
		Language:   body.Language,
		SourceCode: body.SourceCode,
		Stdin:      body.Stdin,
		CallerID:   body.CallerID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

type languageInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Languages lists the registered runtimes.
func (h *Handler) Languages(c *gin.Context) {
	specs := h.svc.Languages()
	out := make([]languageInfo, 0, len(specs))
	for _, s := range specs {
		out = append(out, languageInfo{ID: s.ID, Name: s.Name, Version: s.Version})
	}
	response.Success(c, out)
}

// Health reports liveness plus current scheduler load.
func (h *Handler) Health(c *gin.Context) {
	response.Success(c, h.svc.Stats())
}
