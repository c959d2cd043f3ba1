package handlers

import (
	"errors"
	"net/http"

	"policyrag-backend/service"

	"github.com/gin-gonic/gin"
)

// QueryHandler handles HTTP requests for querying indexed documents
type QueryHandler struct {
	queryService *service.QueryService
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(queryService *service.QueryService) *QueryHandler {
	return &QueryHandler{
		queryService: queryService,
	}
}

// QueryRequest represents the request body for a query
type QueryRequest struct {
	UserRequest string `json:"user_request" binding:"required"`
	DocumentID  string `json:"document_id"`
}

// Query handles POST /api/query. Sentinel decisions (empty retrieval,
// unparseable model output) come back as 200 with the decision body; only
// embed, store and model failures become HTTP errors.
func (h *QueryHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	decision, err := h.queryService.Query(c.Request.Context(), req.UserRequest, req.DocumentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    errorCode(err),
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, decision)
}

// errorCode maps pipeline error kinds to response codes. Every kind surfaces
// as a 500 with the raw underlying message.
func errorCode(err error) string {
	switch {
	case errors.Is(err, service.ErrLoaderFailed):
		return "LOADER_FAILED"
	case errors.Is(err, service.ErrChunkerFailed):
		return "CHUNKER_FAILED"
	case errors.Is(err, service.ErrEmbeddingFailed):
		return "EMBEDDING_FAILED"
	case errors.Is(err, service.ErrStoreFailed):
		return "STORE_FAILED"
	case errors.Is(err, service.ErrGenerationFailed):
		return "GENERATION_FAILED"
	default:
		return "INTERNAL_ERROR"
	}
}
