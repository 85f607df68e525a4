package ingest

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/fdk/resource-service/internal/metrics"
	"github.com/fdk/resource-service/internal/models"
	"github.com/fdk/resource-service/internal/rdf"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu         sync.Mutex
	events     []kafka.Event
	assignment []kafka.TopicPartition
	committed  []kafka.Offset
	seeks      []kafka.Offset
	pauses     int
	resumes    int
	closed     bool
	onEmpty    func()
}

func (c *fakeClient) Poll(int) kafka.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		if c.onEmpty != nil {
			c.onEmpty()
		}
		return nil
	}
	ev := c.events[0]
	c.events = c.events[1:]
	return ev
}

func (c *fakeClient) CommitMessage(m *kafka.Message) ([]kafka.TopicPartition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.committed = append(c.committed, m.TopicPartition.Offset)
	return nil, nil
}

func (c *fakeClient) Seek(p kafka.TopicPartition, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seeks = append(c.seeks, p.Offset)
	return nil
}

func (c *fakeClient) Assignment() ([]kafka.TopicPartition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.assignment, nil
}

func (c *fakeClient) Pause([]kafka.TopicPartition) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pauses++
	return nil
}

func (c *fakeClient) Resume([]kafka.TopicPartition) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resumes++
	return nil
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type jsonValueDecoder struct{}

func (jsonValueDecoder) DeserializeInto(_ string, payload []byte, msg interface{}) error {
	return json.Unmarshal(payload, msg)
}

type handlerFunc func(ctx context.Context, src Source, decode func(any) error) error

func (f handlerFunc) HandleMessage(ctx context.Context, src Source, decode func(any) error) error {
	return f(ctx, src, decode)
}

var datasetSource = Source{Breaker: BreakerDataset, Topic: "dataset-events", ResourceType: models.ResourceTypeDataset}

func message(offset int64, value string) *kafka.Message {
	topic := datasetSource.Topic
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: 0, Offset: kafka.Offset(offset)},
		Value:          []byte(value),
	}
}

func newTestListener(client *fakeClient, h MessageHandler, gate Gate, m *metrics.Metrics) *KafkaListener {
	return newKafkaListener(datasetSource, client, jsonValueDecoder{}, h, gate, m)
}

func messages(m *metrics.Metrics, outcome string) float64 {
	return testutil.ToFloat64(m.MessagesTotal.WithLabelValues(BreakerDataset, outcome))
}

func TestListenerCommitsHandledAndSkippedMessages(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	client := &fakeClient{events: []kafka.Event{message(5, `{}`), message(6, `{}`)}}
	calls := 0
	h := handlerFunc(func(context.Context, Source, func(any) error) error {
		calls++
		if calls == 2 {
			return invalidf("bad")
		}
		return nil
	})
	l := newTestListener(client, h, NewManager(breakerConfig(time.Minute), BreakerNames(), m), m)

	require.NoError(t, l.pollOnce(context.Background()))
	require.NoError(t, l.pollOnce(context.Background()))

	require.Equal(t, []kafka.Offset{5, 6}, client.committed)
	require.Empty(t, client.seeks)
	require.Equal(t, float64(1), messages(m, OutcomeProcessed))
	require.Equal(t, float64(1), messages(m, OutcomeSkipped))
}

func TestListenerRewindsFailedMessages(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	client := &fakeClient{events: []kafka.Event{message(7, `{}`), message(7, `{}`), message(7, `{}`)}}
	h := handlerFunc(func(context.Context, Source, func(any) error) error { return errBoom })
	l := newTestListener(client, h, NewManager(breakerConfig(time.Minute), BreakerNames(), m), m)

	for i := 0; i < 3; i++ {
		require.NoError(t, l.pollOnce(context.Background()))
	}

	require.Empty(t, client.committed)
	require.Equal(t, []kafka.Offset{7, 7, 7}, client.seeks)
	require.Equal(t, float64(2), messages(m, OutcomeFailed))
	require.Equal(t, float64(1), messages(m, OutcomeShortCircuited), "third call hits the open breaker")
}

func TestListenerAppliesPause(t *testing.T) {
	client := &fakeClient{assignment: []kafka.TopicPartition{{Partition: 0}}}
	called := false
	h := handlerFunc(func(context.Context, Source, func(any) error) error { called = true; return nil })
	l := newTestListener(client, h, NewManager(breakerConfig(time.Minute), BreakerNames(), nil), nil)

	l.Pause()
	require.NoError(t, l.pollOnce(context.Background()))
	require.Equal(t, 1, client.pauses)

	client.events = []kafka.Event{message(3, `{}`)}
	require.NoError(t, l.pollOnce(context.Background()))
	require.Equal(t, 2, client.pauses, "pause is re-applied after rebalances")
	require.False(t, called)
	require.Equal(t, []kafka.Offset{3}, client.seeks)

	l.Resume()
	require.NoError(t, l.pollOnce(context.Background()))
	require.Equal(t, 1, client.resumes)
	require.NoError(t, l.pollOnce(context.Background()))
	require.Equal(t, 1, client.resumes)
}

func TestListenerStopsOnFatalError(t *testing.T) {
	client := &fakeClient{events: []kafka.Event{
		kafka.NewError(kafka.ErrAllBrokersDown, "brokers down", false),
		kafka.NewError(kafka.ErrFatal, "fenced", true),
	}}
	l := newTestListener(client, handlerFunc(func(context.Context, Source, func(any) error) error { return nil }),
		NewManager(breakerConfig(time.Minute), BreakerNames(), nil), nil)

	err := l.Run(context.Background())
	require.Error(t, err)
	require.True(t, client.closed)
	require.False(t, l.Running())
}

func TestListenerStoresEvents(t *testing.T) {
	resources := newResources(t)
	mgr := NewManager(breakerConfig(time.Minute), BreakerNames(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &fakeClient{
		events: []kafka.Event{
			message(1, `{"type":"DATASET_HARVESTED","fdkId":"ds-1","graph":"<https://example.org/datasets/1> <http://purl.org/dc/terms/title> \"Test\" .","timestamp":1}`),
			message(2, `{"type":"DATASET_REMOVED","fdkId":"ds-2","timestamp":1}`),
		},
		onEmpty: cancel,
	}
	l := newTestListener(client, NewHandler(resources, rdf.NewConverter()), mgr, nil)
	mgr.Register(BreakerDataset, l)

	require.NoError(t, l.Run(ctx))
	require.Equal(t, []kafka.Offset{1, 2}, client.committed)

	r, err := resources.GetResource(context.Background(), "ds-1")
	require.NoError(t, err)
	require.True(t, r.HasGraph())
	r, err = resources.GetResource(context.Background(), "ds-2")
	require.NoError(t, err)
	require.True(t, r.Deleted)

	status := mgr.Status()
	for _, s := range status {
		if s.Name == BreakerDataset {
			require.Equal(t, uint32(2), s.NumberOfSuccessfulCalls)
			require.False(t, s.Listeners[BreakerDataset].IsRunning)
		}
	}
}
