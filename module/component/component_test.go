package component_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArTombado/rsnano-node/module/component"
	"github.com/ArTombado/rsnano-node/module/irrecoverable"
	"github.com/ArTombado/rsnano-node/utils/unittest"
)

func TestComponentManagerLifecycle(t *testing.T) {
	started := make(chan struct{})
	manager := component.NewComponentManagerBuilder().
		AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
			close(started)
			ready()
			<-ctx.Done()
		}).
		Build()

	ctx, cancel := context.WithCancel(context.Background())
	signalerCtx, errChan := irrecoverable.WithSignaler(ctx)
	manager.Start(signalerCtx)

	unittest.RequireCloses(t, started, time.Second, "worker started")
	unittest.RequireCloses(t, manager.Ready(), time.Second, "manager ready")

	cancel()
	unittest.RequireCloses(t, manager.Done(), time.Second, "manager done")

	select {
	case err := <-errChan:
		require.NoError(t, err)
	default:
	}
}

func TestComponentManagerThrownError(t *testing.T) {
	expected := errors.New("worker failed")
	manager := component.NewComponentManagerBuilder().
		AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
			ready()
			ctx.Throw(expected)
		}).
		AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
			ready()
			// this worker shuts down when the other one throws
			<-ctx.Done()
		}).
		Build()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signalerCtx, errChan := irrecoverable.WithSignaler(ctx)
	manager.Start(signalerCtx)

	select {
	case err := <-errChan:
		assert.ErrorIs(t, err, expected)
	case <-time.After(time.Second):
		t.Fatal("expected the thrown error to propagate")
	}
	unittest.RequireCloses(t, manager.Done(), time.Second, "manager done")
}

func TestComponentManagerStartTwicePanics(t *testing.T) {
	manager := component.NewComponentManagerBuilder().
		AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
			ready()
			<-ctx.Done()
		}).
		Build()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signalerCtx, _ := irrecoverable.WithSignaler(ctx)
	manager.Start(signalerCtx)
	assert.Panics(t, func() { manager.Start(signalerCtx) })
	cancel()
	unittest.RequireCloses(t, manager.Done(), time.Second, "manager done")
}
