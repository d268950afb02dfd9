package handler

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"sigs.k8s.io/yaml"

	"github.com/srivastavahk/TaskFlow/internal/transport/http/response"
)

// OpenAPIHandler serves the OpenAPI document as JSON.
type OpenAPIHandler struct {
	rawYAML  []byte
	jsonOnce sync.Once
	jsonSpec []byte
	jsonErr  error
	logger   *slog.Logger
}

// NewOpenAPIHandler converts yamlSpec to JSON on first request.
func NewOpenAPIHandler(yamlSpec []byte, logger *slog.Logger) *OpenAPIHandler {
	return &OpenAPIHandler{rawYAML: yamlSpec, logger: logger.With("component", "openapi_handler")}
}

// GET /docs/openapi.json
func (h *OpenAPIHandler) Serve(c *gin.Context) {
	h.jsonOnce.Do(func() {
		h.jsonSpec, h.jsonErr = yaml.YAMLToJSON(h.rawYAML)
	})

	if h.jsonErr != nil {
		h.logger.ErrorContext(c.Request.Context(), "convert openapi document", "error", h.jsonErr)
		response.Err(c, http.StatusInternalServerError, errInternalServer)
		return
	}

	c.Data(http.StatusOK, "application/json", h.jsonSpec)
}
