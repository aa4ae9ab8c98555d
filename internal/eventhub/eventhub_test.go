package eventhub_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gsh-project/gsh/internal/eventhub"
)

func TestRecvCoalescesKeys(t *testing.T) {
	h := eventhub.New()
	h.PushKey('a')
	h.PushKey('b')
	h.PushKey('c')

	d, ok := h.Recv()
	require.True(t, ok)
	require.Equal(t, []byte("abc"), d.Keys)
}

func TestRecvCoalescesPtyOutputAndClock(t *testing.T) {
	h := eventhub.New()
	h.PushPtyOutput()
	h.PushPtyOutput()
	h.PushClock()

	d, ok := h.Recv()
	require.True(t, ok)
	require.True(t, d.PtyOutput)
	require.True(t, d.Clock)
}

func TestRecvResizeIsLastWins(t *testing.T) {
	h := eventhub.New()
	h.PushResize(eventhub.Resize{Rows: 10, Cols: 20})
	h.PushResize(eventhub.Resize{Rows: 40, Cols: 80})

	d, ok := h.Recv()
	require.True(t, ok)
	require.NotNil(t, d.Resize)
	require.Equal(t, 40, d.Resize.Rows)
	require.Equal(t, 80, d.Resize.Cols)
}

func TestRecvBlocksUntilPushed(t *testing.T) {
	h := eventhub.New()
	done := make(chan eventhub.Drained, 1)
	go func() {
		d, _ := h.Recv()
		done <- d
	}()

	select {
	case <-done:
		t.Fatal("Recv returned before anything was pushed")
	case <-time.After(20 * time.Millisecond):
	}

	h.PushChildExit(eventhub.ChildExit{Idx: 3})
	select {
	case d := <-done:
		require.Len(t, d.ChildExits, 1)
		require.Equal(t, 3, d.ChildExits[0].Idx)
	case <-time.After(time.Second):
		t.Fatal("Recv did not unblock after push")
	}
}

func TestRecvCoalescesSuspends(t *testing.T) {
	h := eventhub.New()
	h.PushSuspend(1)
	h.PushSuspend(2)

	d, ok := h.Recv()
	require.True(t, ok)
	require.Equal(t, []int{1, 2}, d.Suspends)
}

func TestRecvGitInfoIsLastWins(t *testing.T) {
	h := eventhub.New()
	h.PushGitInfo("branch-a")
	h.PushGitInfo("branch-b")

	d, ok := h.Recv()
	require.True(t, ok)
	require.Equal(t, "branch-b", d.GitInfo)
}

func TestCloseUnblocksRecv(t *testing.T) {
	h := eventhub.New()
	done := make(chan bool, 1)
	go func() {
		_, ok := h.Recv()
		done <- ok
	}()
	h.Close()
	select {
	case ok := <-done:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Recv did not unblock after Close")
	}
}
