package a11y

import (
	"strconv"
	"strings"
	"time"
)

// productKeywords are matched case-insensitively against node names for
// TargetProducts.
var productKeywords = []string{"price", "cart", "buy", "add", "product", "$"}

// navKeywords are matched case-insensitively against link names for
// TargetNavigation.
var navKeywords = []string{"home", "menu", "nav", "navigation", "category"}

var formRoles = map[string]bool{
	"textbox":  true,
	"button":   true,
	"checkbox": true,
	"combobox": true,
	"listbox":  true,
	"form":     true,
}

var productRoles = map[string]bool{
	"article": true,
	"button":  true,
	"heading": true,
}

var mainContentRoles = map[string]bool{
	"main":    true,
	"article": true,
	"section": true,
}

var semanticRoles = map[string]bool{
	"heading": true,
	"button":  true,
	"link":    true,
	"article": true,
	"section": true,
	"text":    true,
}

// Extract builds an owned tree from the raw id-indexed map, walks it
// pre-order, and returns the flat list of nodes passing the inclusion
// predicate. An empty or rootless tree yields an empty result, never an
// error.
func Extract(tree *RawTree, opts Options) *ExtractedContent {
	content := &ExtractedContent{
		Options:     opts,
		ExtractedAt: time.Now(),
	}
	if tree == nil || len(tree.Nodes) == 0 {
		return content
	}

	root := buildNode(tree, tree.RootID, 0, map[string]bool{})
	if root == nil {
		return content
	}

	walk(root, opts, content)
	return content
}

// buildNode converts the raw map into an owned tree, recording depth at each
// node. The seen set guards against malformed trees with child-id cycles.
func buildNode(tree *RawTree, id string, depth int, seen map[string]bool) *Node {
	raw, ok := tree.Nodes[id]
	if !ok || seen[id] {
		return nil
	}
	seen[id] = true

	node := &Node{
		ID:          id,
		Role:        raw.Role,
		Name:        raw.Name,
		Value:       raw.Value,
		Description: raw.Description,
		Depth:       depth,
	}
	if raw.Attributes != nil {
		if lvl, err := strconv.Atoi(raw.Attributes["level"]); err == nil {
			node.Level = lvl
		}
		node.Focusable = raw.Attributes["focusable"] == "true"
	}

	for _, childID := range raw.ChildIDs {
		if child := buildNode(tree, childID, depth+1, seen); child != nil {
			node.Children = append(node.Children, child)
		}
	}
	return node
}

// walk visits nodes pre-order. The depth bound restricts recursion only: a
// node exactly at MaxDepth is still evaluated for inclusion, but its
// children are never visited.
func walk(node *Node, opts Options, content *ExtractedContent) {
	if include(node, opts) {
		flat := *node
		flat.Children = nil
		content.Nodes = append(content.Nodes, &flat)
	}

	if node.Depth >= opts.MaxDepth {
		return
	}
	for _, child := range node.Children {
		walk(child, opts, content)
	}
}

// include is the composable inclusion predicate. Order matters: exclusion
// wins unconditionally, explicit inclusion beats the target heuristic, and
// an unknown target includes nothing.
func include(node *Node, opts Options) bool {
	for _, role := range opts.ExcludeRoles {
		if node.Role == role {
			return false
		}
	}
	for _, role := range opts.IncludeRoles {
		if node.Role == role {
			return true
		}
	}

	switch opts.Target {
	case TargetProducts:
		return productRoles[node.Role] || containsAny(node.Name, productKeywords)
	case TargetForms:
		return formRoles[node.Role]
	case TargetNavigation:
		if node.Role == "navigation" {
			return true
		}
		return node.Role == "link" && containsAny(node.Name, navKeywords)
	case TargetMainContent:
		return mainContentRoles[node.Role]
	case TargetSemantic:
		if node.Role == "text" && !opts.IncludeText {
			return false
		}
		switch node.Role {
		case "button", "link", "textbox":
			if !opts.IncludeInteractive {
				return false
			}
		}
		if len(node.Name) < opts.MinTextLength {
			return false
		}
		return semanticRoles[node.Role]
	default:
		return false
	}
}

func containsAny(name string, keywords []string) bool {
	lower := strings.ToLower(name)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
