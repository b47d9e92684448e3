package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	identityapp "github.com/fintrack/backend/internal/application/identity"
	"github.com/fintrack/backend/internal/infrastructure/webhook"
	"github.com/fintrack/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// DefaultMaxWebhookPayload bounds a webhook body when no limit is configured
const DefaultMaxWebhookPayload = 256 << 10

// WebhookProcessor verifies and dispatches one identity webhook delivery
type WebhookProcessor interface {
	ProcessWebhook(ctx context.Context, headers webhook.Headers, payload []byte) (*identityapp.WebhookResult, error)
}

// WebhookHandler receives identity provider webhooks. The route carries no
// caller auth; the signature is the authentication.
type WebhookHandler struct {
	BaseHandler
	processor  WebhookProcessor
	maxPayload int64
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(processor WebhookProcessor, maxPayload int64) *WebhookHandler {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxWebhookPayload
	}
	return &WebhookHandler{
		processor:  processor,
		maxPayload: maxPayload,
	}
}

// HandleWebhook godoc
//
//	@Summary		Receive identity webhook
//	@Description	Verify the Svix signature and apply user.created, user.updated and user.deleted events
//	@Tags			webhooks
//	@Accept			json
//	@Produce		json
//	@Param			svix-id			header		string	true	"Message ID"
//	@Param			svix-timestamp	header		string	true	"Unix timestamp"
//	@Param			svix-signature	header		string	true	"Signature list"
//	@Success		200				{object}	dto.Response
//	@Failure		400				{object}	dto.Response	"Signature or payload rejected"
//	@Failure		413				{object}	dto.Response
//	@Failure		500				{object}	dto.Response
//	@Router			/webhook [post]
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	// The raw bytes are needed for signature verification
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxPayload+1))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodePayloadTooLarge, "Payload too large")
			return
		}
		h.BadRequest(c, "Failed to read request body")
		return
	}
	if int64(len(payload)) > h.maxPayload {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodePayloadTooLarge, "Payload too large")
		return
	}

	headers := webhook.Headers{
		ID:        c.GetHeader(webhook.HeaderID),
		Timestamp: c.GetHeader(webhook.HeaderTimestamp),
		Signature: c.GetHeader(webhook.HeaderSignature),
	}

	result, err := h.processor.ProcessWebhook(c.Request.Context(), headers, payload)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
