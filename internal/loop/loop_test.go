package loop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startLoop(t *testing.T) (*Loop, context.CancelFunc, chan error) {
	l := New(8, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()
	t.Cleanup(cancel)
	return l, cancel, errCh
}

func TestLoop_RunsInOrder(t *testing.T) {
	l, _, _ := startLoop(t)

	var (
		mu  sync.Mutex
		got []int
		wg  sync.WaitGroup
	)
	wg.Add(3)
	for i := 1; i <= 3; i++ {
		i := i
		require.True(t, l.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			wg.Done()
		}))
	}
	wg.Wait()

	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestLoop_RecoversPanics(t *testing.T) {
	l, _, _ := startLoop(t)

	done := make(chan struct{})
	l.Post(func() { panic("boom") })
	l.Post(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop stopped after panic")
	}
}

func TestLoop_PostAfterStop(t *testing.T) {
	l, cancel, errCh := startLoop(t)
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	assert.False(t, l.Post(func() {}))
}

func TestLoop_Every(t *testing.T) {
	l, _, _ := startLoop(t)

	ticks := make(chan struct{}, 10)
	stop := l.Every(5*time.Millisecond, 5*time.Millisecond, func() { ticks <- struct{}{} })

	for i := 0; i < 3; i++ {
		select {
		case <-ticks:
		case <-time.After(time.Second):
			t.Fatalf("tick %d not delivered", i)
		}
	}
	stop()
	stop()
}
