package auditlog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/audit"
)

// recordingSink 记录收到的事件,可配置为始终失败
type recordingSink struct {
	name string
	err  error

	mu      sync.Mutex
	entries []audit.Entry
	calls   int
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Write(_ context.Context, e audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *recordingSink) snapshot() ([]audit.Entry, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audit.Entry, len(s.entries))
	copy(out, s.entries)
	return out, s.calls
}

// blockingSink 第一次写入时阻塞,直到release被关闭
type blockingSink struct {
	recordingSink
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *blockingSink) Write(ctx context.Context, e audit.Entry) error {
	s.once.Do(func() { close(s.started) })
	select {
	case <-s.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.recordingSink.Write(ctx, e)
}

func closeRecorder(t *testing.T, r *Recorder) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Close(ctx))
}

func TestRecorder_RecordAndDrain(t *testing.T) {
	sink := &recordingSink{name: "memory"}
	r := NewRecorder(zap.NewNop(), Options{BufferSize: 16}, sink)

	fixed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	r.Record(context.Background(), 7, audit.ActionBookBorrowed, audit.EntityBook, 3, "borrow book 3")
	r.Record(context.Background(), 7, audit.ActionBookReturned, audit.EntityBook, 3, "return book 3")
	r.Record(context.Background(), 7, audit.ActionPenaltyApplied, audit.EntityLoan, 11, "penalty 300")

	closeRecorder(t, r)

	entries, _ := sink.snapshot()
	require.Len(t, entries, 3)

	assert.Equal(t, audit.ActionBookBorrowed, entries[0].Action)
	assert.Equal(t, audit.ActionBookReturned, entries[1].Action)
	assert.Equal(t, audit.ActionPenaltyApplied, entries[2].Action)
	assert.Equal(t, audit.EntityLoan, entries[2].EntityType)
	assert.Equal(t, uint(11), entries[2].EntityID)

	ids := map[string]bool{}
	for _, e := range entries {
		assert.Equal(t, uint(7), e.BorrowerID)
		assert.True(t, e.CreatedAt.Equal(fixed))
		assert.NotEmpty(t, e.ID)
		ids[e.ID] = true
	}
	assert.Len(t, ids, 3, "每条事件ID唯一")
}

func TestRecorder_FailingSinkIsolated(t *testing.T) {
	good := &recordingSink{name: "good"}
	bad := &recordingSink{name: "bad", err: errors.New("connection refused")}

	r := NewRecorder(zap.NewNop(), Options{BufferSize: 16, BreakerFailures: 100}, bad, good)

	for i := 0; i < 5; i++ {
		r.Record(context.Background(), 1, audit.ActionBookBorrowed, audit.EntityBook, uint(i+1), "")
	}
	closeRecorder(t, r)

	entries, _ := good.snapshot()
	assert.Len(t, entries, 5, "失败的目标不影响其他目标")

	_, badCalls := bad.snapshot()
	assert.Equal(t, 5, badCalls)
}

func TestRecorder_BreakerOpens(t *testing.T) {
	bad := &recordingSink{name: "flaky", err: errors.New("timeout")}

	r := NewRecorder(zap.NewNop(), Options{
		BufferSize:      16,
		BreakerFailures: 2,
		BreakerTimeout:  time.Minute,
	}, bad)

	for i := 0; i < 6; i++ {
		r.Record(context.Background(), 1, audit.ActionBookReturned, audit.EntityBook, 1, "")
	}
	closeRecorder(t, r)

	_, calls := bad.snapshot()
	assert.Equal(t, 2, calls, "熔断后不再调用落地目标")
}

func TestRecorder_QueueFullDrops(t *testing.T) {
	sink := &blockingSink{
		recordingSink: recordingSink{name: "slow"},
		started:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	r := NewRecorder(zap.NewNop(), Options{BufferSize: 1}, sink)

	// 第一条被Worker取走并阻塞在写入中
	r.Record(context.Background(), 1, audit.ActionBookBorrowed, audit.EntityBook, 1, "first")
	select {
	case <-sink.started:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not pick up the first entry")
	}

	// 第二条占满队列,第三条被丢弃
	r.Record(context.Background(), 1, audit.ActionBookBorrowed, audit.EntityBook, 2, "second")

	done := make(chan struct{})
	go func() {
		r.Record(context.Background(), 1, audit.ActionBookBorrowed, audit.EntityBook, 3, "third")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full queue")
	}

	close(sink.release)
	closeRecorder(t, r)

	entries, _ := sink.snapshot()
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Details)
	assert.Equal(t, "second", entries[1].Details)
}

func TestRecorder_RecordAfterClose(t *testing.T) {
	sink := &recordingSink{name: "memory"}
	r := NewRecorder(zap.NewNop(), Options{}, sink)

	closeRecorder(t, r)

	assert.NotPanics(t, func() {
		r.Record(context.Background(), 1, audit.ActionBookBorrowed, audit.EntityBook, 1, "")
	})
	assert.NoError(t, r.Close(context.Background()), "重复Close")

	entries, _ := sink.snapshot()
	assert.Empty(t, entries)
}

func TestRecorder_CloseTimeout(t *testing.T) {
	sink := &blockingSink{
		recordingSink: recordingSink{name: "stuck"},
		started:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	r := NewRecorder(zap.NewNop(), Options{BufferSize: 4}, sink)
	r.Record(context.Background(), 1, audit.ActionBookBorrowed, audit.EntityBook, 1, "")
	<-sink.started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := r.Close(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(sink.release)
	closeRecorder(t, r)
}

type fakePublisher struct {
	exchange string
	err      error

	keys     []string
	messages []interface{}
}

func (p *fakePublisher) Exchange() string { return p.exchange }

func (p *fakePublisher) Publish(_ context.Context, routingKey string, message interface{}) error {
	p.keys = append(p.keys, routingKey)
	p.messages = append(p.messages, message)
	return p.err
}

func TestMQSink_Write(t *testing.T) {
	t.Run("按动作路由", func(t *testing.T) {
		pub := &fakePublisher{exchange: "library.activity"}
		sink := NewMQSink(pub)
		assert.Equal(t, "mq", sink.Name())

		entry := audit.Entry{ID: "e1", Action: audit.ActionPenaltyApplied, BorrowerID: 9}
		require.NoError(t, sink.Write(context.Background(), entry))

		require.Len(t, pub.keys, 1)
		assert.Equal(t, "penalty.applied", pub.keys[0])
		assert.Equal(t, entry, pub.messages[0])
	})

	t.Run("发布失败返回错误", func(t *testing.T) {
		pub := &fakePublisher{exchange: "library.activity", err: errors.New("channel closed")}
		err := NewMQSink(pub).Write(context.Background(), audit.Entry{Action: audit.ActionBookReturned})
		assert.Error(t, err)
		assert.Equal(t, []string{"book.returned"}, pub.keys)
	})
}
