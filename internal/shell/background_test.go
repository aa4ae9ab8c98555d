package shell

import (
	"context"
	"testing"
	"time"

	"github.com/gsh-project/gsh/internal/eventhub"
	"github.com/stretchr/testify/require"
)

func TestStartClockPushesClockEventsUntilCanceled(t *testing.T) {
	hub := eventhub.New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		StartClock(ctx, hub)
		close(done)
	}()

	d, ok := hub.Recv()
	require.True(t, ok)
	require.True(t, d.Clock)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("StartClock did not return after cancel")
	}
}

func TestStartGitWatchPushesNothingForNonGitDir(t *testing.T) {
	hub := eventhub.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	done := make(chan struct{})
	go func() {
		StartGitWatch(ctx, hub, dir, 20*time.Millisecond)
		close(done)
	}()

	// A non-git directory yields a nil Info from gitwatch.Poll, so
	// nothing is ever pushed; just confirm the goroutine stops cleanly
	// on cancel without hanging or panicking.
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("StartGitWatch did not return after cancel")
	}
}
