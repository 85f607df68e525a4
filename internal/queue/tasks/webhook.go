package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fdk/resource-service/internal/services"
	"github.com/fdk/resource-service/pkg/logger"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// WebhookTaskHandler delivers queued union graph notifications.
type WebhookTaskHandler struct {
	sender services.WebhookSender
}

func NewWebhookTaskHandler(sender services.WebhookSender) *WebhookTaskHandler {
	return &WebhookTaskHandler{sender: sender}
}

// Register adds the handler to an asynq mux.
func (h *WebhookTaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(services.TaskWebhook, h.HandleWebhook)
}

// HandleWebhook posts the notification. A delivery error is returned so asynq retries it;
// a malformed payload is never retried.
func (h *WebhookTaskHandler) HandleWebhook(ctx context.Context, t *asynq.Task) error {
	var p services.WebhookTask
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid webhook task payload", zap.Error(err))
		return fmt.Errorf("decode webhook task: %v: %w", err, asynq.SkipRetry)
	}
	if p.URL == "" || p.Payload.ID == "" {
		logger.L().Error("incomplete webhook task payload", zap.String("order_id", p.Payload.ID))
		return fmt.Errorf("webhook task without url or order id: %w", asynq.SkipRetry)
	}

	log := logger.L().With(zap.String("order_id", p.Payload.ID), zap.String("status", string(p.Payload.Status)))
	log.Info("handling webhook task")

	if err := h.sender.Send(ctx, p.URL, p.Payload); err != nil {
		log.Warn("webhook delivery failed", zap.Error(err))
		return err
	}
	log.Info("webhook delivered")
	return nil
}
