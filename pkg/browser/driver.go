package browser

import (
	"context"

	"github.com/nxtscape/webpilot/pkg/a11y"
)

// Driver is the browser automation surface the engine depends on. The engine
// never talks to a browser directly; it consumes snapshots and issues
// index-addressed actions through this interface.
type Driver interface {
	// GetState captures the current interactive-element snapshot, with
	// pre-rendered listings and an optional screenshot.
	GetState(ctx context.Context) (*State, error)

	// GetAccessibilityTree captures the raw accessibility tree for the
	// current page.
	GetAccessibilityTree(ctx context.Context) (*a11y.RawTree, error)

	// Navigate loads the given URL and waits for the page to be ready.
	Navigate(ctx context.Context, url string) error

	// Click clicks the element with the given snapshot index. The index is
	// only valid for the most recent GetState snapshot.
	Click(ctx context.Context, index int) error

	// Type fills the element with the given snapshot index with text.
	Type(ctx context.Context, index int, text string) error

	// ExtractText returns the page's visible text with scripts, styles,
	// and other noise removed, truncated to maxLength characters.
	ExtractText(ctx context.Context, maxLength int) (string, error)

	// OpenTab opens a new interactive tab at the given URL and returns a
	// handle to it. Used for OAuth flows where the user completes an
	// authorization form out of band.
	OpenTab(ctx context.Context, url string) (Tab, error)
}

// Tab is a handle to an auxiliary browser tab.
type Tab interface {
	// Closed is closed when the tab goes away, whether by Close or by the
	// user closing it.
	Closed() <-chan struct{}

	// Close closes the tab. Safe to call after the tab is already closed,
	// and safe to call more than once.
	Close() error
}
