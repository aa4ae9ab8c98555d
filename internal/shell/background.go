package shell

import (
	"context"
	"time"

	"github.com/gsh-project/gsh/internal/eventhub"
	"github.com/gsh-project/gsh/internal/gitwatch"
)

// StartClock runs the 1-second repaint ticker spec.md §4.9's
// ClockTimer event feeds (SPEC_FULL.md §0.2's supplemented clock
// input, original_source/src/shell/inputs/clock.rs), stopping when ctx
// is canceled. Grounded on dcosson-h2's Session.TickStatus ticker loop,
// generalized from directly re-rendering clients to pushing onto the
// hub so Run's own loop stays the only renderer.
func StartClock(ctx context.Context, hub *eventhub.Hub) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			hub.PushClock()
		case <-ctx.Done():
			return
		}
	}
}

// StartGitWatch polls dir for git status every interval and pushes
// changes onto hub as GitInfo events, stopping when ctx is canceled.
// Errors (e.g. transient git invocation failures) are swallowed: a
// missed poll just means the prompt's git segment goes one interval
// stale, not a reason to stop watching.
func StartGitWatch(ctx context.Context, hub *eventhub.Hub, dir string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			info, err := gitwatch.Poll(ctx, dir)
			if err != nil || info == nil {
				continue
			}
			hub.PushGitInfo(info)
		case <-ctx.Done():
			return
		}
	}
}
