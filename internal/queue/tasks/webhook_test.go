package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fdk/resource-service/internal/models"
	"github.com/fdk/resource-service/internal/services"
	"github.com/fdk/resource-service/pkg/logger"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests (required by tasks)
	_, err := logger.Init("info", "json")
	if err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, url string, payload services.WebhookPayload) error {
	return m.Called(ctx, url, payload).Error(0)
}

func webhookTask(t *testing.T, url string) *asynq.Task {
	t.Helper()
	b, err := json.Marshal(services.WebhookTask{
		URL:     url,
		Payload: services.WebhookPayload{ID: "o1", Status: models.OrderStatusCompleted},
	})
	require.NoError(t, err)
	return asynq.NewTask(services.TaskWebhook, b)
}

func TestHandleWebhookDelivers(t *testing.T) {
	sender := new(mockSender)
	sender.On("Send", mock.Anything, "https://example.com/hook", mock.MatchedBy(func(p services.WebhookPayload) bool {
		return p.ID == "o1" && p.Status == models.OrderStatusCompleted
	})).Return(nil)

	h := NewWebhookTaskHandler(sender)
	require.NoError(t, h.HandleWebhook(context.Background(), webhookTask(t, "https://example.com/hook")))
	sender.AssertExpectations(t)
}

func TestHandleWebhookReturnsDeliveryError(t *testing.T) {
	sender := new(mockSender)
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("502"))

	err := NewWebhookTaskHandler(sender).HandleWebhook(context.Background(), webhookTask(t, "https://example.com/hook"))
	require.Error(t, err)
	require.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleWebhookSkipsRetryOnBadPayload(t *testing.T) {
	sender := new(mockSender)
	h := NewWebhookTaskHandler(sender)

	err := h.HandleWebhook(context.Background(), asynq.NewTask(services.TaskWebhook, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = h.HandleWebhook(context.Background(), webhookTask(t, ""))
	require.ErrorIs(t, err, asynq.SkipRetry)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}
