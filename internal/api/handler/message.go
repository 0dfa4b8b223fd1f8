package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/punctualhq/punctual/internal/api/models"
	"github.com/punctualhq/punctual/internal/api/response"
	"github.com/punctualhq/punctual/internal/notify"
)

// MessageHandler handles message delivery test endpoints.
type MessageHandler struct {
	notifier *notify.Service
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(notifier *notify.Service) *MessageHandler {
	return &MessageHandler{notifier: notifier}
}

// SendTestMessage handles POST /v1/messages/test - verify SMS delivery to a
// phone number before creating alerts for it.
func (h *MessageHandler) SendTestMessage(w http.ResponseWriter, r *http.Request) {
	var input models.TestMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	to := strings.TrimSpace(input.PhoneNumber)
	if to == "" {
		response.BadRequest(w, r, "phoneNumber is required", []models.FieldError{
			{Field: "phoneNumber", Message: "is required"},
		})
		return
	}

	body := input.Message
	if body == "" {
		body = "Punctual test message. Your alerts will arrive on this number."
	}

	result, err := h.notifier.SendRaw(r.Context(), to, body)
	if err != nil {
		response.UpstreamFailure(w, r, "message delivery failed")
		return
	}

	response.JSON(w, r, http.StatusOK, models.TestMessageResponse{
		Success:   true,
		MessageID: result.MessageID,
		To:        to,
	})
}
