package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingRunner struct {
	started chan string
	release chan struct{}
	ctxErr  chan error
	panic   bool
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		started: make(chan string, 8),
		release: make(chan struct{}),
		ctxErr:  make(chan error, 8),
	}
}

func (r *blockingRunner) Run(ctx context.Context, _ Chat, trackID string, _ StatusMessage) Result {
	r.started <- trackID
	<-r.release
	r.ctxErr <- ctx.Err()
	if r.panic {
		panic("boom")
	}
	return Result{TrackID: trackID, State: StateDone}
}

func TestLaunchReturnsImmediately(t *testing.T) {
	runner := newBlockingRunner()
	l := NewLauncher(runner, 2, time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, l.Launch(ctx, &fakeChat{}, "1", nil))
	assert.Equal(t, "1", <-runner.started)

	// Cancelling the handler context must not cancel the detached run.
	cancel()
	close(runner.release)
	assert.NoError(t, <-runner.ctxErr)
	require.NoError(t, l.Wait(context.Background()))
}

func TestLaunchRejectsWhenBusy(t *testing.T) {
	runner := newBlockingRunner()
	l := NewLauncher(runner, 1, time.Minute, nil)

	require.True(t, l.Launch(context.Background(), &fakeChat{}, "1", nil))
	<-runner.started
	assert.False(t, l.Launch(context.Background(), &fakeChat{}, "2", nil))

	close(runner.release)
	require.NoError(t, l.Wait(context.Background()))

	assert.True(t, l.Launch(context.Background(), &fakeChat{}, "3", nil))
	assert.Equal(t, "3", <-runner.started)
	require.NoError(t, l.Wait(context.Background()))
}

func TestLaunchAppliesTimeout(t *testing.T) {
	l := NewLauncher(runnerFunc(func(ctx context.Context) {
		<-ctx.Done()
	}), 1, 20*time.Millisecond, nil)

	require.True(t, l.Launch(context.Background(), &fakeChat{}, "1", nil))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, l.Wait(ctx))
}

func TestLaunchSurvivesPanic(t *testing.T) {
	runner := newBlockingRunner()
	runner.panic = true
	l := NewLauncher(runner, 1, time.Minute, nil)

	require.True(t, l.Launch(context.Background(), &fakeChat{}, "1", nil))
	<-runner.started
	close(runner.release)
	require.NoError(t, l.Wait(context.Background()))

	// The slot is released even after a panic.
	runner2 := newBlockingRunner()
	l.runner = runner2
	require.True(t, l.Launch(context.Background(), &fakeChat{}, "2", nil))
	close(runner2.release)
	require.NoError(t, l.Wait(context.Background()))
}

func TestWaitHonoursContext(t *testing.T) {
	runner := newBlockingRunner()
	l := NewLauncher(runner, 1, time.Minute, nil)
	require.True(t, l.Launch(context.Background(), &fakeChat{}, "1", nil))
	<-runner.started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.DeadlineExceeded)

	close(runner.release)
	require.NoError(t, l.Wait(context.Background()))
}

type runnerFunc func(ctx context.Context)

func (f runnerFunc) Run(ctx context.Context, _ Chat, trackID string, _ StatusMessage) Result {
	f(ctx)
	return Result{TrackID: trackID, State: StateFailed}
}
