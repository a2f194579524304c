package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/n3utron0/telecom-call-data-analyzer/model"
	"github.com/n3utron0/telecom-call-data-analyzer/service"
)

// ChatHandler exposes the analytics chatbot boundary.
type ChatHandler struct {
	analytics *service.AnalyticsPipeline
}

func NewChatHandler(analytics *service.AnalyticsPipeline) *ChatHandler {
	return &ChatHandler{analytics: analytics}
}

type chatRequest struct {
	Query string `json:"query" binding:"required"`
}

// Greetings answered locally without a model round trip.
var cannedReplies = map[string]string{
	"hi":        "Hey there! How can I help you today?",
	"hello":     "Hello! Ask me anything about the call data.",
	"thanks":    "You're most welcome!",
	"thank you": "You're most welcome!",
	"bye":       "Goodbye! Come back anytime.",
}

// Query answers one natural-language question about the call data. A
// safety-gate rejection or execution error comes back structured, with the
// reason verbatim, never as a generic failure.
func (h *ChatHandler) Query(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing query text"})
		return
	}

	if reply, ok := cannedReplies[strings.ToLower(strings.TrimSpace(req.Query))]; ok {
		c.JSON(http.StatusOK, gin.H{"answer": reply})
		return
	}

	result, err := h.analytics.Answer(c.Request.Context(), req.Query)
	if err != nil {
		var unparsable *model.UnparsableSQLError
		var rejected *model.RejectedSQLError
		if errors.As(err, &unparsable) || errors.As(err, &rejected) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": err.Error(),
				"query": result.Query,
			})
			return
		}

		payload := gin.H{"error": err.Error()}
		if result != nil {
			payload["query"] = result.Query
		}
		c.JSON(http.StatusBadGateway, payload)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"answer":    result.Answer,
		"sql":       result.Query.GeneratedSQL,
		"row_count": result.RowCount,
	})
}
