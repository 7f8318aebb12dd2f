package a11y

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ExtractedContent is the immutable pairing of a flat filtered node list with
// the options that produced it. It supports two read-only projections and is
// never mutated after Extract returns it.
type ExtractedContent struct {
	Nodes       []*Node
	Options     Options
	ExtractedAt time.Time
}

// roleGlyphs prefix each section line in the structured-text projection.
var roleGlyphs = map[string]string{
	"heading":    "#",
	"button":     "[btn]",
	"link":       "->",
	"textbox":    "[input]",
	"checkbox":   "[x]",
	"combobox":   "[sel]",
	"listbox":    "[list]",
	"form":       "[form]",
	"navigation": "[nav]",
	"main":       "[main]",
	"article":    "[art]",
	"section":    "[sec]",
	"text":       "-",
}

func glyphFor(role string) string {
	if g, ok := roleGlyphs[role]; ok {
		return g
	}
	return "*"
}

// MaxDepthObserved returns the deepest depth among the extracted nodes.
func (c *ExtractedContent) MaxDepthObserved() int {
	max := 0
	for _, n := range c.Nodes {
		if n.Depth > max {
			max = n.Depth
		}
	}
	return max
}

// ToStructuredText groups nodes by role and renders one section per role,
// with glyph prefixes, up to 3 levels of visual indentation by depth,
// value/description lines when present, and a stats footer.
func (c *ExtractedContent) ToStructuredText() string {
	var sb strings.Builder

	order := make([]string, 0)
	grouped := make(map[string][]*Node)
	for _, n := range c.Nodes {
		if _, seen := grouped[n.Role]; !seen {
			order = append(order, n.Role)
		}
		grouped[n.Role] = append(grouped[n.Role], n)
	}

	for _, role := range order {
		fmt.Fprintf(&sb, "## %s (%d)\n", role, len(grouped[role]))
		for _, n := range grouped[role] {
			indent := n.Depth
			if indent > 3 {
				indent = 3
			}
			pad := strings.Repeat("  ", indent)
			fmt.Fprintf(&sb, "%s%s %s\n", pad, glyphFor(n.Role), n.Name)
			if n.Value != "" {
				fmt.Fprintf(&sb, "%s  value: %s\n", pad, n.Value)
			}
			if n.Description != "" {
				fmt.Fprintf(&sb, "%s  desc: %s\n", pad, n.Description)
			}
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "---\n%d nodes | max depth %d | target: %s\n",
		len(c.Nodes), c.MaxDepthObserved(), c.Options.Target)
	return sb.String()
}

// jsonPayload is the wire shape of the JSON projection.
type jsonPayload struct {
	Nodes    []*Node      `json:"nodes"`
	Metadata jsonMetadata `json:"metadata"`
}

type jsonMetadata struct {
	TotalNodes  int    `json:"totalNodes"`
	MaxDepth    int    `json:"maxDepth"`
	Target      Target `json:"target"`
	ExtractedAt string `json:"extractedAt"`
}

// ToJSON renders the node list with computed stats metadata.
func (c *ExtractedContent) ToJSON() ([]byte, error) {
	nodes := c.Nodes
	if nodes == nil {
		nodes = []*Node{}
	}
	payload := jsonPayload{
		Nodes: nodes,
		Metadata: jsonMetadata{
			TotalNodes:  len(c.Nodes),
			MaxDepth:    c.MaxDepthObserved(),
			Target:      c.Options.Target,
			ExtractedAt: c.ExtractedAt.UTC().Format(time.RFC3339),
		},
	}
	return json.MarshalIndent(payload, "", "  ")
}
