package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type PoolSuite struct {
	suite.Suite
	pool *Pool
}

func (s *PoolSuite) SetupTest() {
	s.pool = NewPool(3)
}

func (s *PoolSuite) TearDownTest() {
	s.pool.Close()
}

func TestPoolSuite(t *testing.T) {
	suite.Run(t, new(PoolSuite))
}

func (s *PoolSuite) TestLazyStart() {
	s.False(s.pool.IsRunning())
	s.Equal(int64(0), s.pool.Generations())

	s.Require().NoError(s.pool.Do(context.Background(), func(context.Context) error { return nil }))

	s.True(s.pool.IsRunning())
	s.Equal(int64(1), s.pool.Generations())
}

func (s *PoolSuite) TestReturnsTaskError() {
	want := errors.New("boom")
	err := s.pool.Do(context.Background(), func(context.Context) error { return want })
	s.ErrorIs(err, want)
}

func (s *PoolSuite) TestRecoversPanic() {
	err := s.pool.Do(context.Background(), func(context.Context) error { panic("bad shard") })
	s.ErrorIs(err, ErrTaskPanic)
	s.Contains(err.Error(), "bad shard")

	// The goroutine that recovered keeps serving.
	s.NoError(s.pool.Do(context.Background(), func(context.Context) error { return nil }))
}

func (s *PoolSuite) TestConcurrencyBounded() {
	var active, peak atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.pool.Do(context.Background(), func(context.Context) error {
				n := active.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				active.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	s.LessOrEqual(peak.Load(), int32(3))
	s.Positive(peak.Load())
}

func (s *PoolSuite) TestReusableAfterClose() {
	s.Require().NoError(s.pool.Do(context.Background(), func(context.Context) error { return nil }))
	s.pool.Close()
	s.False(s.pool.IsRunning())

	s.Require().NoError(s.pool.Do(context.Background(), func(context.Context) error { return nil }))
	s.True(s.pool.IsRunning())
	s.Equal(int64(2), s.pool.Generations())
}

func (s *PoolSuite) TestCloseIdempotent() {
	s.pool.Close()
	s.pool.Close()
	s.False(s.pool.IsRunning())
}

func (s *PoolSuite) TestDoHonoursContextWhileQueued() {
	pool := NewPool(1)
	defer pool.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = pool.Do(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := pool.Do(ctx, func(context.Context) error {
		ran = true
		return nil
	})
	close(release)

	s.ErrorIs(err, context.Canceled)
	s.False(ran)
}

func (s *PoolSuite) TestCloseWaitsForRunningTasks() {
	started := make(chan struct{})
	var finished atomic.Bool

	go func() {
		_ = s.pool.Do(context.Background(), func(context.Context) error {
			close(started)
			time.Sleep(20 * time.Millisecond)
			finished.Store(true)
			return nil
		})
	}()
	<-started

	s.pool.Close()
	s.True(finished.Load())
}

func TestNewPoolDefaultsSize(t *testing.T) {
	assert.Positive(t, NewPool(0).Size())
	assert.Positive(t, NewPool(-4).Size())
	assert.Equal(t, 7, NewPool(7).Size())
}

func TestContextCarriesPool(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	p := NewPool(2)
	got, ok := FromContext(WithPool(context.Background(), p))
	require.True(t, ok)
	assert.Same(t, p, got)

	_, ok = FromContext(WithPool(context.Background(), nil))
	assert.False(t, ok)
}
