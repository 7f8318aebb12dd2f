// Package browser defines the collaborator interface the agent engine uses
// to observe and act on a live page, plus a Playwright-backed implementation.
//
// The engine consumes only the Driver interface; everything element-related
// (indices, listings, screenshots) is a snapshot of page state at the moment
// of capture. Element indices must never be reused across a step boundary
// without refetching state, because the page can change under the agent at
// any time.
package browser

import (
	"fmt"
	"sort"
	"strings"
)

// ElementKind distinguishes clickable from typeable candidates.
type ElementKind string

const (
	KindClickable ElementKind = "clickable"
	KindTypeable  ElementKind = "typeable"
)

// listing glyphs: one character per element kind, used in the compact
// single-line-per-element syntax fed to the grounding LLM.
const (
	glyphClickable = "*"
	glyphTypeable  = ">"
)

// Element is one interactive element of the current page snapshot.
type Element struct {
	// Index is the stable numeric identifier within this snapshot.
	Index int

	// Kind says whether the element is clickable or typeable.
	Kind ElementKind

	// Tag is the lowercase HTML tag name.
	Tag string

	// Text is the element's visible text or accessible name.
	Text string

	// Context is surrounding text that helps disambiguate the element.
	Context string

	// Path is the ancestor chain (e.g. "form>div>button").
	Path string

	// Attributes holds selected HTML attributes (id, class, type, ...).
	Attributes map[string]string
}

// Line renders the element in the compact single-line syntax:
//
//	[12] * button "Add to cart" ctx:"Product page" path:"div>form>button" attr:"type=submit"
func (e *Element) Line() string {
	glyph := glyphClickable
	if e.Kind == KindTypeable {
		glyph = glyphTypeable
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%d] %s %s %q", e.Index, glyph, e.Tag, e.Text)
	if e.Context != "" {
		fmt.Fprintf(&sb, " ctx:%q", e.Context)
	}
	if e.Path != "" {
		fmt.Fprintf(&sb, " path:%q", e.Path)
	}
	if len(e.Attributes) > 0 {
		keys := make([]string, 0, len(e.Attributes))
		for k := range e.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%s", k, e.Attributes[k]))
		}
		fmt.Fprintf(&sb, " attr:%q", strings.Join(pairs, " "))
	}
	return sb.String()
}

// State is a snapshot of the page's interactive surface.
type State struct {
	// URL is the page URL at capture time.
	URL string

	// Title is the page title at capture time.
	Title string

	// ClickableElements are the current clickable candidates.
	ClickableElements []Element

	// TypeableElements are the current typeable candidates.
	TypeableElements []Element

	// ClickableElementsString is the pre-rendered compact listing of
	// ClickableElements, one line per element.
	ClickableElementsString string

	// TypeableElementsString is the pre-rendered compact listing of
	// TypeableElements, one line per element.
	TypeableElementsString string

	// ScreenshotB64 is an optional base64-encoded PNG of the viewport.
	ScreenshotB64 string
}

// RenderListings fills the pre-rendered listing strings from the element
// slices. Drivers call this after populating elements.
func (s *State) RenderListings() {
	s.ClickableElementsString = renderListing(s.ClickableElements)
	s.TypeableElementsString = renderListing(s.TypeableElements)
}

func renderListing(elements []Element) string {
	lines := make([]string, 0, len(elements))
	for i := range elements {
		lines = append(lines, elements[i].Line())
	}
	return strings.Join(lines, "\n")
}

// FindByIndex looks an element up in either candidate list by its snapshot
// index. The boolean reports whether the index exists at all — callers use
// this as the ground-truth check for LLM-proposed indices.
func (s *State) FindByIndex(index int) (*Element, bool) {
	for i := range s.ClickableElements {
		if s.ClickableElements[i].Index == index {
			return &s.ClickableElements[i], true
		}
	}
	for i := range s.TypeableElements {
		if s.TypeableElements[i].Index == index {
			return &s.TypeableElements[i], true
		}
	}
	return nil, false
}

// IsEmpty reports whether the snapshot has no interactive elements at all.
func (s *State) IsEmpty() bool {
	return len(s.ClickableElements) == 0 && len(s.TypeableElements) == 0
}
