package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestScanLoop_RestartAfterStop(t *testing.T) {
	conf := newTestConfig()
	stack := newTestStack(t, conf)
	loop := NewScanLoop(conf, stack.scan, zap.NewNop())

	for round := 0; round < 3; round++ {
		done := make(chan error, 1)
		go func() { done <- loop.Start(context.Background()) }()

		require.Eventually(t, loop.IsRunning, time.Second, 5*time.Millisecond, "round %d", round)
		assert.Error(t, loop.Start(context.Background()), "already running")

		loop.Stop()
		select {
		case err := <-done:
			assert.NoError(t, err, "round %d", round)
		case <-time.After(2 * time.Second):
			t.Fatalf("round %d: Start did not return after Stop", round)
		}
		assert.False(t, loop.IsRunning())
	}

	// 重复停止不会 panic
	loop.Stop()
}

func TestScanLoop_StopsWithContext(t *testing.T) {
	conf := newTestConfig()
	loop := NewScanLoop(conf, newTestStack(t, conf).scan, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Start(ctx) }()
	require.Eventually(t, loop.IsRunning, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after context cancel")
	}
	assert.False(t, loop.IsRunning())
}
