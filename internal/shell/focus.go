package shell

// FocusKind names which of the three places in spec.md §4.9 currently
// owns keyboard input.
type FocusKind int

const (
	// FocusReadline routes keys to the readline buffer (the default).
	FocusReadline FocusKind = iota
	// FocusHistory routes keys straight to a running entry's PTY.
	FocusHistory
	// FocusScrolling interprets keys as meta commands against Idx.
	FocusScrolling
)

// Focus is the controller's `focus` field: a kind plus, for History and
// Scrolling, the entry index it applies to.
type Focus struct {
	Kind FocusKind
	Idx  int
}

func readlineFocus() Focus           { return Focus{Kind: FocusReadline} }
func historyFocus(idx int) Focus     { return Focus{Kind: FocusHistory, Idx: idx} }
func scrollingFocus(idx int) Focus   { return Focus{Kind: FocusScrolling, Idx: idx} }

// Scene is the controller's `scene` field: whether the focused entry's
// alternate-screen output should take over the whole pane.
type Scene int

const (
	SceneReadline Scene = iota
	SceneFullscreen
)
