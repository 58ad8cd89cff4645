package api

import (
	"errors"

	"finera/middleware"
	"finera/service"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// AIHandler spending suggestions from the generative model
type AIHandler struct {
	suggestions *service.SuggestionService
}

// NewAIHandler creates the AI handler
func NewAIHandler(suggestions *service.SuggestionService) *AIHandler {
	return &AIHandler{suggestions: suggestions}
}

// SuggestionRequest suggestion payload
type SuggestionRequest struct {
	Amount     decimal.Decimal `json:"amount" swaggertype:"number" example:"1000"`
	Location   string          `json:"location" binding:"max=100" example:"Colombo"`
	Currency   string          `json:"currency" binding:"omitempty,max=10" example:"LKR"`
	Categories []string        `json:"categories" example:"Food,Transport"`
}

// SuggestionResponse filtered suggestions
type SuggestionResponse struct {
	Suggestions []service.Suggestion `json:"suggestions"`
}

// Suggestions asks the model for ways to spend an amount
// @Summary Budget suggestions
// @Description Ask Gemini for spending ideas within the amount. Items costing more than the amount are dropped.
// @Tags AI
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SuggestionRequest true "budget"
// @Success 200 {object} Response{data=SuggestionResponse} "suggestions"
// @Failure 400 {object} Response "invalid amount"
// @Failure 502 {object} Response "AI provider failed"
// @Router /api/ai/suggestions [post]
func (h *AIHandler) Suggestions(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req SuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, bindingMessage(err))
		return
	}

	items, err := h.suggestions.Suggest(c.Request.Context(), service.SuggestionRequest{
		Amount:     req.Amount,
		Location:   req.Location,
		Currency:   req.Currency,
		Categories: req.Categories,
	})
	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		BadRequest(c, err.Error())
		return
	case err != nil:
		log.Error().Err(err).
			Str("request_id", requestid.Get(c)).
			Uint("user_id", userID).
			Msg("AI suggestions failed")
		BadGateway(c, SafeErrorMessage(err, "AI suggestions are unavailable right now"))
		return
	}

	Success(c, SuggestionResponse{Suggestions: items})
}
