package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/LENAX/alert-engine/pkg/core/policy"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)}
}

func TestMemoryDedupStore_CooldownWindow(t *testing.T) {
	clock := newClock()
	s := NewMemoryDedupStore(clock.Now)
	ctx := context.Background()
	key := DedupKey{WorkflowID: "wf", Subject: StepSubject("s1"), Category: policy.CategoryUrgent}

	ok, err := s.CheckAndMark(ctx, key, 12*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	clock.Advance(11 * time.Hour)
	ok, _ = s.CheckAndMark(ctx, key, 12*time.Hour)
	assert.False(t, ok, "冷却期内不能再次告警")

	clock.Advance(time.Hour)
	ok, _ = s.CheckAndMark(ctx, key, 12*time.Hour)
	assert.True(t, ok, "冷却期结束后允许再次告警")
}

func TestMemoryDedupStore_KeysAreIndependent(t *testing.T) {
	s := NewMemoryDedupStore(newClock().Now)
	ctx := context.Background()
	base := DedupKey{WorkflowID: "wf", Subject: StepSubject("s1"), Category: policy.CategoryWarning}

	ok, _ := s.CheckAndMark(ctx, base, time.Hour)
	assert.True(t, ok)

	other := base
	other.Category = policy.CategoryOverdue
	ok, _ = s.CheckAndMark(ctx, other, time.Hour)
	assert.True(t, ok, "不同类别互不影响")

	section := DedupKey{WorkflowID: "wf", Subject: SectionSubject("LEAD", "Intake"), Category: policy.CategorySectionStart}
	ok, _ = s.CheckAndMark(ctx, section, time.Hour)
	assert.True(t, ok)
	assert.Equal(t, 3, s.Len())
}

func TestMemoryDedupStore_Forget(t *testing.T) {
	s := NewMemoryDedupStore(newClock().Now)
	ctx := context.Background()
	key := DedupKey{WorkflowID: "wf", Subject: StepSubject("s1"), Category: policy.CategoryWarning}

	ok, _ := s.CheckAndMark(ctx, key, time.Hour)
	require.True(t, ok)
	require.NoError(t, s.Forget(ctx, key))

	ok, _ = s.CheckAndMark(ctx, key, time.Hour)
	assert.True(t, ok)
}

func TestMemoryDedupStore_Evict(t *testing.T) {
	clock := newClock()
	s := NewMemoryDedupStore(clock.Now)
	ctx := context.Background()

	_, _ = s.CheckAndMark(ctx, DedupKey{WorkflowID: "old", Subject: StepSubject("a")}, time.Hour)
	clock.Advance(8 * 24 * time.Hour)
	_, _ = s.CheckAndMark(ctx, DedupKey{WorkflowID: "new", Subject: StepSubject("b")}, time.Hour)

	n, err := s.Evict(ctx, clock.Now().Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryDedupStore_ConcurrentCheckAndMark(t *testing.T) {
	s := NewMemoryDedupStore(newClock().Now)
	key := DedupKey{WorkflowID: "wf", Subject: StepSubject("s1"), Category: policy.CategoryOverdue}

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := s.CheckAndMark(context.Background(), key, time.Hour); ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins, "并发检查只有一个调用方可以告警")
}

func TestRunCleanup_StopsOnCancel(t *testing.T) {
	s := NewMemoryDedupStore(nil)
	_, _ = s.CheckAndMark(context.Background(), DedupKey{WorkflowID: "wf"}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunCleanup(ctx, s, 10*time.Millisecond, 0, func() time.Time { return time.Now().Add(time.Hour) }, nil)
		close(done)
	}()

	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunCleanup未在ctx取消后退出")
	}
}

type failingEvictStore struct {
	DedupStore
}

func (failingEvictStore) Evict(ctx context.Context, olderThan time.Time) (int, error) {
	return 0, errors.New("database is locked")
}

func TestRunCleanup_LogsEvictError(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go RunCleanup(ctx, failingEvictStore{}, 10*time.Millisecond, time.Hour, nil, zap.New(core))

	require.Eventually(t, func() bool { return logs.Len() > 0 }, time.Second, 10*time.Millisecond)
	entry := logs.All()[0]
	assert.Equal(t, "database is locked", entry.ContextMap()["error"])
}
