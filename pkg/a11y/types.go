// Package a11y converts a raw browser accessibility tree into a filtered,
// role-grouped, serializable node list. Extraction is a pure function of the
// raw tree and the options: nothing is cached across calls, because the raw
// tree is refreshed by the browser whenever page state may have changed.
package a11y

// Target selects the inclusion heuristic applied during extraction.
type Target string

const (
	// TargetProducts keeps commerce-relevant nodes (articles, buttons,
	// headings, anything naming prices or cart actions).
	TargetProducts Target = "products"

	// TargetForms keeps form controls.
	TargetForms Target = "forms"

	// TargetNavigation keeps navigation landmarks and nav-like links.
	TargetNavigation Target = "navigation"

	// TargetMainContent keeps main/article/section landmarks.
	TargetMainContent Target = "main_content"

	// TargetSemantic keeps general semantic structure, tunable through
	// IncludeText, IncludeInteractive, and MinTextLength.
	TargetSemantic Target = "semantic"
)

// RawNode is one entry of the id-indexed accessibility tree handed over by
// the browser.
type RawNode struct {
	Role        string            `json:"role"`
	Name        string            `json:"name,omitempty"`
	Value       string            `json:"value,omitempty"`
	Description string            `json:"description,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	ChildIDs    []string          `json:"childIds,omitempty"`
}

// RawTree is the browser's accessibility snapshot: a root id plus an
// id-indexed node map.
type RawTree struct {
	RootID string             `json:"rootId"`
	Nodes  map[string]RawNode `json:"nodes"`
}

// Node is an extracted accessibility node. Emitted nodes are flat: Children
// is populated only on the intermediate owned tree and is cleared on every
// node appended to a result.
type Node struct {
	ID          string  `json:"id"`
	Role        string  `json:"role"`
	Name        string  `json:"name,omitempty"`
	Value       string  `json:"value,omitempty"`
	Description string  `json:"description,omitempty"`
	Level       int     `json:"level,omitempty"`
	Depth       int     `json:"depth"`
	Focusable   bool    `json:"focusable,omitempty"`
	Children    []*Node `json:"children,omitempty"`
}

// Options configures one extraction call.
type Options struct {
	// Target selects the inclusion heuristic.
	Target Target

	// MaxDepth is the deepest level visited. Nodes exactly at MaxDepth are
	// still evaluated for inclusion; their children are never visited.
	MaxDepth int

	// ExcludeRoles suppresses roles unconditionally, winning over every
	// other rule including IncludeRoles.
	ExcludeRoles []string

	// IncludeRoles, when non-empty, includes matching roles ahead of the
	// target heuristic.
	IncludeRoles []string

	// IncludeText keeps plain text nodes under TargetSemantic.
	IncludeText bool

	// IncludeInteractive keeps button/link/textbox under TargetSemantic.
	IncludeInteractive bool

	// MinTextLength drops short names under TargetSemantic.
	MinTextLength int
}

// DefaultOptions returns the standard extraction configuration.
func DefaultOptions(target Target) Options {
	return Options{
		Target:             target,
		MaxDepth:           12,
		IncludeText:        true,
		IncludeInteractive: true,
	}
}
