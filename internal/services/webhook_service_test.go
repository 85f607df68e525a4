package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fdk/resource-service/internal/models"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func completedOrder(webhook *string) *models.UnionGraphOrder {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	processed := created.Add(time.Minute)
	return &models.UnionGraphOrder{
		ID:             "o1",
		Status:         models.OrderStatusCompleted,
		ResourceTypes:  []byte(`["DATASET"]`),
		UpdateTTLHours: 12,
		WebhookURL:     webhook,
		CreatedAt:      created,
		UpdatedAt:      processed,
		ProcessedAt:    &processed,
	}
}

func TestNewWebhookPayload(t *testing.T) {
	prev := models.OrderStatusProcessing
	p := NewWebhookPayload(completedOrder(nil), &prev)

	b, err := json.Marshal(p)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"id":"o1","status":"COMPLETED","previousStatus":"PROCESSING",
		"resourceTypes":["DATASET"],"updateTtlHours":12,"errorMessage":null,
		"createdAt":"2024-05-01T10:00:00Z","updatedAt":"2024-05-01T10:01:00Z",
		"processedAt":"2024-05-01T10:01:00Z"
	}`, string(b))
}

func TestNotifySkipsOrdersWithoutWebhook(t *testing.T) {
	enq := new(mockEnqueuer)
	sender := new(mockSender)
	n := NewWebhookNotifier(enq, sender, WebhookOptions{MaxRetry: 3})

	n.Notify(context.Background(), completedOrder(nil), nil)
	n.Notify(context.Background(), completedOrder(strPtr("")), nil)

	enq.AssertNotCalled(t, "EnqueueContext", mock.Anything, mock.Anything)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotifyEnqueuesTask(t *testing.T) {
	ctx := context.Background()
	enq := new(mockEnqueuer)
	sender := new(mockSender)
	n := NewWebhookNotifier(enq, sender, WebhookOptions{MaxRetry: 3, Timeout: time.Second})

	enq.On("EnqueueContext", ctx, mock.MatchedBy(func(task *asynq.Task) bool {
		var wt WebhookTask
		return task.Type() == TaskWebhook &&
			json.Unmarshal(task.Payload(), &wt) == nil &&
			wt.URL == "https://example.com/hook" && wt.Payload.ID == "o1"
	})).Return(&asynq.TaskInfo{ID: "t1"}, nil)

	n.Notify(ctx, completedOrder(strPtr("https://example.com/hook")), nil)
	enq.AssertExpectations(t)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotifyFallsBackToInlineDelivery(t *testing.T) {
	ctx := context.Background()
	enq := new(mockEnqueuer)
	sender := new(mockSender)
	n := NewWebhookNotifier(enq, sender, WebhookOptions{Timeout: time.Second})

	enq.On("EnqueueContext", ctx, mock.Anything).Return(nil, errors.New("redis down"))
	sender.On("Send", mock.Anything, "https://example.com/hook", mock.Anything).Return(nil)

	n.Notify(ctx, completedOrder(strPtr("https://example.com/hook")), nil)
	sender.AssertExpectations(t)

	inline := NewWebhookNotifier(nil, sender, WebhookOptions{})
	inline.Notify(ctx, completedOrder(strPtr("https://example.com/hook")), nil)
	sender.AssertNumberOfCalls(t, "Send", 2)
}

func TestHTTPWebhookSender(t *testing.T) {
	received := make(chan WebhookPayload, 2)
	var status atomic.Int32
	status.Store(http.StatusNoContent)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		var p WebhookPayload
		_ = json.Unmarshal(b, &p)
		received <- p
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	sender := NewHTTPWebhookSender(time.Second, nil)
	payload := NewWebhookPayload(completedOrder(nil), nil)

	require.NoError(t, sender.Send(context.Background(), srv.URL, payload))
	got := <-received
	require.Equal(t, "o1", got.ID)
	require.Nil(t, got.PreviousStatus)

	status.Store(http.StatusInternalServerError)
	require.Error(t, sender.Send(context.Background(), srv.URL, payload))
}
