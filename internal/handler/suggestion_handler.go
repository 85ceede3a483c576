package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/anonmsg/internal/pkg/response"
	"github.com/xxxsen/anonmsg/internal/service"
)

type SuggestionHandler struct {
	suggestions *service.SuggestionService
}

func NewSuggestionHandler(suggestions *service.SuggestionService) *SuggestionHandler {
	return &SuggestionHandler{suggestions: suggestions}
}

func (h *SuggestionHandler) Suggest(c *gin.Context) {
	raw, questions, err := h.suggestions.Suggest(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Suggestions generated", gin.H{
		"suggestions": raw,
		"questions":   questions,
	})
}
