package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func assertNoEvent(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected event %s", ev.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_ChannelScoping(t *testing.T) {
	hub := NewHub(8)
	p1, p2 := uuid.New(), uuid.New()

	sub1 := hub.Subscribe(ProjectChannel(p1))
	defer sub1.Close()
	sub2 := hub.Subscribe(ProjectChannel(p2))
	defer sub2.Close()
	global := hub.Subscribe(Broadcast)
	defer global.Close()

	ev, err := NewEvent(TaskCreated, ProjectChannel(p1), map[string]string{"title": "a"})
	require.NoError(t, err)
	require.NoError(t, hub.Deliver(context.Background(), ev))

	assert.Equal(t, TaskCreated, receive(t, sub1).Kind)
	assertNoEvent(t, sub2)
	assertNoEvent(t, global)

	bc, err := NewEvent(ProjectDeleted, Broadcast, map[string]string{"projectId": p2.String()})
	require.NoError(t, err)
	require.NoError(t, hub.Deliver(context.Background(), bc))

	assert.Equal(t, ProjectDeleted, receive(t, sub1).Kind)
	assert.Equal(t, ProjectDeleted, receive(t, sub2).Kind)
	assert.Equal(t, ProjectDeleted, receive(t, global).Kind)
}

func TestHub_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(1)
	sub := hub.Subscribe("p")
	defer sub.Close()

	for i := 0; i < 3; i++ {
		ev, _ := NewEvent(TaskUpdated, "p", i)
		require.NoError(t, hub.Deliver(context.Background(), ev))
	}

	assert.Equal(t, int64(2), hub.Dropped())
	first := receive(t, sub)
	assert.JSONEq(t, "0", string(first.Payload))
}

func TestSubscription_CloseIsIdempotent(t *testing.T) {
	hub := NewHub(1)
	sub := hub.Subscribe("p")
	assert.Equal(t, 1, hub.Subscribers("p"))

	sub.Close()
	sub.Close()

	assert.Equal(t, 0, hub.Subscribers("p"))
	_, ok := <-sub.Events()
	assert.False(t, ok)
}

func TestDispatcher_PreservesPublishOrder(t *testing.T) {
	hub := NewHub(64)
	projectID := uuid.New()
	sub := hub.Subscribe(ProjectChannel(projectID))
	defer sub.Close()

	d := NewDispatcher(hub, 64, nil)
	defer d.Close()

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		d.Publish(ctx, TaskCreated, ProjectChannel(projectID), map[string]int{"n": i})
	}

	for i := 0; i < 20; i++ {
		ev := receive(t, sub)
		var body map[string]int
		require.NoError(t, json.Unmarshal(ev.Payload, &body))
		assert.Equal(t, i, body["n"])
	}
}

type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	got     []Kind
}

func (s *blockingSink) Deliver(_ context.Context, ev Event) error {
	<-s.release
	s.mu.Lock()
	s.got = append(s.got, ev.Kind)
	s.mu.Unlock()
	return nil
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Warnf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Errorf(format string, args ...interface{}) { l.Warnf(format, args...) }

func TestDispatcher_PublishNeverBlocks(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	lg := &recordingLogger{}
	d := NewDispatcher(sink, 1, lg)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Publish(context.Background(), TaskUpdated, "p", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a stalled sink")
	}

	close(sink.release)
	d.Close()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Less(t, len(sink.got), 10)
	lg.mu.Lock()
	defer lg.mu.Unlock()
	assert.NotEmpty(t, lg.lines)
}

func TestDispatcher_PublishAfterCloseIsIgnored(t *testing.T) {
	d := NewDispatcher(NewHub(1), 4, nil)
	d.Close()
	assert.NotPanics(t, func() {
		d.Publish(context.Background(), TaskDeleted, "p", nil)
	})
}

func setupTestRedis(t *testing.T) *redis.Client {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisBroker_RelaysToLocalHub(t *testing.T) {
	client := setupTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := NewRedisBroker(client)
	relay, err := broker.Listen(ctx, nil)
	require.NoError(t, err)
	defer relay.Close()

	hub := NewHub(8)
	go relay.Run(ctx, hub)

	projectID := uuid.New()
	sub := hub.Subscribe(ProjectChannel(projectID))
	defer sub.Close()
	other := hub.Subscribe(ProjectChannel(uuid.New()))
	defer other.Close()

	ev, err := NewEvent(CommentAdded, ProjectChannel(projectID), map[string]string{"text": "hi"})
	require.NoError(t, err)
	require.NoError(t, broker.Deliver(ctx, ev))

	got := receive(t, sub)
	assert.Equal(t, CommentAdded, got.Kind)
	assert.Equal(t, ProjectChannel(projectID), got.Channel)
	assert.JSONEq(t, `{"text":"hi"}`, string(got.Payload))
	assertNoEvent(t, other)

	bc, err := NewEvent(ProjectCreated, Broadcast, map[string]string{"name": "x"})
	require.NoError(t, err)
	require.NoError(t, broker.Deliver(ctx, bc))
	assert.Equal(t, ProjectCreated, receive(t, sub).Kind)
	assert.Equal(t, ProjectCreated, receive(t, other).Kind)
}

func TestTopicFor(t *testing.T) {
	assert.Equal(t, "taskhub:events:broadcast", topicFor(Event{}))
	assert.Equal(t, "taskhub:events:abc", topicFor(Event{Channel: "abc"}))
}
