package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tair/payment-service/internal/payment/domain"
	"github.com/tair/payment-service/internal/payment/processor"
	"github.com/tair/payment-service/internal/payment/usecase/command"
	"github.com/tair/payment-service/pkg/logger"
)

// signatureHeaders names the header each provider signs webhooks with
var signatureHeaders = map[string]string{
	processor.NameStripe: "Stripe-Signature",
	processor.NameCustom: "X-Webhook-Signature",
}

// Webhook handles POST /webhooks/{provider}
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	provider := mux.Vars(r)["provider"]

	if h.processor == nil || provider != h.processor.Name() {
		respondJSON(w, http.StatusNotFound, Response{Success: false, Error: "Unknown webhook provider"})
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	event, err := h.processor.VerifyWebhook(payload, r.Header.Get(signatureHeaders[provider]))
	if err != nil {
		logger.Warn(ctx).Err(err).Str("provider", provider).Msg("Webhook rejected")
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, processor.ErrWebhooksDisabled):
			respondJSON(w, http.StatusNotFound, Response{Success: false, Error: "Webhooks are not enabled"})
			return
		case errors.Is(err, processor.ErrInvalidSignature):
			status = http.StatusUnauthorized
		}
		respondJSON(w, status, Response{Success: false, Error: "Webhook verification failed"})
		return
	}

	action, ok := event.Action()
	if !ok {
		logger.Info(ctx).Str("provider", provider).Str("type", event.Type).Msg("Webhook event ignored")
		respondJSON(w, http.StatusOK, Response{Success: true, Message: "Event ignored"})
		return
	}
	if event.PaymentID == "" {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "payment_id is required"})
		return
	}

	metadata := map[string]any{"webhook_provider": provider}
	if event.ID != "" {
		metadata["webhook_event_id"] = event.ID
	}

	payment, err := h.processHandler.Handle(ctx, command.ProcessPaymentCommand{
		PaymentID: event.PaymentID,
		Action:    string(action),
		Metadata:  metadata,
	})
	if err != nil {
		// providers redeliver until acknowledged, so a replay is a success
		var transitionErr *domain.InvalidTransitionError
		if errors.As(err, &transitionErr) && transitionErr.Replay {
			respondJSON(w, http.StatusOK, Response{Success: true, Message: "Event already applied"})
			return
		}
		respondError(w, r, err)
		return
	}

	logger.Info(ctx).
		Str("provider", provider).
		Str("type", event.Type).
		Str("payment_id", payment.PaymentID).
		Str("status", string(payment.Status)).
		Msg("Webhook applied")
	respondJSON(w, http.StatusOK, Response{Success: true, Message: "Event applied", Data: payment})
}
