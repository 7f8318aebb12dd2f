package a11y

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threeLeveltree builds root(main) -> sec1(section), btn1(button) -> art1(article), txt1(text)
func threeLevelTree() *RawTree {
	return &RawTree{
		RootID: "root",
		Nodes: map[string]RawNode{
			"root": {Role: "main", Name: "Main content", ChildIDs: []string{"sec1", "btn1"}},
			"sec1": {Role: "section", Name: "Results", ChildIDs: []string{"art1"}},
			"btn1": {Role: "button", Name: "Load more", ChildIDs: []string{"txt1"}},
			"art1": {Role: "article", Name: "First result"},
			"txt1": {Role: "text", Name: "more"},
		},
	}
}

func TestExtractEmptyTree(t *testing.T) {
	content := Extract(&RawTree{}, DefaultOptions(TargetSemantic))
	assert.Empty(t, content.Nodes)

	content = Extract(nil, DefaultOptions(TargetSemantic))
	assert.Empty(t, content.Nodes)
}

func TestMaxDepthBoundsRecursionNotInclusion(t *testing.T) {
	opts := DefaultOptions(TargetMainContent)
	opts.MaxDepth = 1

	content := Extract(threeLevelTree(), opts)

	// Root (main, depth 0) and sec1 (section, depth 1) pass; art1 (article,
	// depth 2) would match the target but is never visited.
	require.Len(t, content.Nodes, 2)
	assert.Equal(t, "root", content.Nodes[0].ID)
	assert.Equal(t, "sec1", content.Nodes[1].ID)
	for _, n := range content.Nodes {
		assert.LessOrEqual(t, n.Depth, 1)
	}
}

func TestFrontierNodeStillEvaluated(t *testing.T) {
	opts := DefaultOptions(TargetMainContent)
	opts.MaxDepth = 0

	content := Extract(threeLevelTree(), opts)
	require.Len(t, content.Nodes, 1)
	assert.Equal(t, "root", content.Nodes[0].ID)
	assert.Equal(t, 0, content.Nodes[0].Depth)
}

func TestEmittedNodesAreFlat(t *testing.T) {
	content := Extract(threeLevelTree(), DefaultOptions(TargetMainContent))
	for _, n := range content.Nodes {
		assert.Nil(t, n.Children)
	}
}

func TestExcludeWinsOverInclude(t *testing.T) {
	opts := DefaultOptions(TargetMainContent)
	opts.IncludeRoles = []string{"section"}
	opts.ExcludeRoles = []string{"section"}

	content := Extract(threeLevelTree(), opts)
	for _, n := range content.Nodes {
		assert.NotEqual(t, "section", n.Role)
	}
}

func TestIncludeRolesBeatsTargetHeuristic(t *testing.T) {
	opts := DefaultOptions(TargetMainContent)
	opts.IncludeRoles = []string{"button"}

	content := Extract(threeLevelTree(), opts)
	roles := make(map[string]bool)
	for _, n := range content.Nodes {
		roles[n.Role] = true
	}
	assert.True(t, roles["button"])
}

func TestProductsTargetMatchesKeywords(t *testing.T) {
	tree := &RawTree{
		RootID: "root",
		Nodes: map[string]RawNode{
			"root": {Role: "generic", Name: "wrapper", ChildIDs: []string{"a", "b", "c"}},
			"a":    {Role: "link", Name: "Add to Cart"},
			"b":    {Role: "text", Name: "$19.99"},
			"c":    {Role: "link", Name: "About us"},
		},
	}

	content := Extract(tree, DefaultOptions(TargetProducts))
	require.Len(t, content.Nodes, 2)
	assert.Equal(t, "a", content.Nodes[0].ID)
	assert.Equal(t, "b", content.Nodes[1].ID)
}

func TestNavigationTargetMatchesNavLinks(t *testing.T) {
	tree := &RawTree{
		RootID: "root",
		Nodes: map[string]RawNode{
			"root": {Role: "navigation", Name: "Site", ChildIDs: []string{"l1", "l2"}},
			"l1":   {Role: "link", Name: "Home"},
			"l2":   {Role: "link", Name: "Privacy policy"},
		},
	}

	content := Extract(tree, DefaultOptions(TargetNavigation))
	require.Len(t, content.Nodes, 2)
	assert.Equal(t, "root", content.Nodes[0].ID)
	assert.Equal(t, "l1", content.Nodes[1].ID)
}

func TestSemanticTargetOptions(t *testing.T) {
	tree := &RawTree{
		RootID: "root",
		Nodes: map[string]RawNode{
			"root": {Role: "section", Name: "A section", ChildIDs: []string{"t1", "b1", "h1"}},
			"t1":   {Role: "text", Name: "some plain text"},
			"b1":   {Role: "button", Name: "OK"},
			"h1":   {Role: "heading", Name: "Hi"},
		},
	}

	opts := DefaultOptions(TargetSemantic)
	opts.IncludeText = false
	opts.IncludeInteractive = false

	content := Extract(tree, opts)
	require.Len(t, content.Nodes, 2)
	assert.Equal(t, "root", content.Nodes[0].ID)
	assert.Equal(t, "h1", content.Nodes[1].ID)
}

func TestSemanticMinTextLength(t *testing.T) {
	tree := &RawTree{
		RootID: "root",
		Nodes: map[string]RawNode{
			"root": {Role: "section", Name: "wrapper", ChildIDs: []string{"h1", "h2"}},
			"h1":   {Role: "heading", Name: "Hi"},
			"h2":   {Role: "heading", Name: "Welcome back"},
		},
	}

	opts := DefaultOptions(TargetSemantic)
	opts.MinTextLength = 5

	content := Extract(tree, opts)
	require.Len(t, content.Nodes, 2)
	assert.Equal(t, "root", content.Nodes[0].ID)
	assert.Equal(t, "h2", content.Nodes[1].ID)
}

func TestUnknownTargetIncludesNothing(t *testing.T) {
	content := Extract(threeLevelTree(), DefaultOptions(Target("bogus")))
	assert.Empty(t, content.Nodes)
}

func TestCycleSafety(t *testing.T) {
	tree := &RawTree{
		RootID: "a",
		Nodes: map[string]RawNode{
			"a": {Role: "main", Name: "A", ChildIDs: []string{"b"}},
			"b": {Role: "section", Name: "B", ChildIDs: []string{"a"}},
		},
	}
	content := Extract(tree, DefaultOptions(TargetMainContent))
	assert.Len(t, content.Nodes, 2)
}

func TestToStructuredTextHasSectionsAndFooter(t *testing.T) {
	content := Extract(threeLevelTree(), DefaultOptions(TargetMainContent))
	text := content.ToStructuredText()

	assert.Contains(t, text, "## main (1)")
	assert.Contains(t, text, "## section (1)")
	assert.Contains(t, text, "target: main_content")
	assert.Contains(t, text, "3 nodes")
}

func TestToJSONMetadata(t *testing.T) {
	content := Extract(threeLevelTree(), DefaultOptions(TargetMainContent))
	raw, err := content.ToJSON()
	require.NoError(t, err)

	var payload struct {
		Nodes    []json.RawMessage `json:"nodes"`
		Metadata struct {
			TotalNodes int    `json:"totalNodes"`
			MaxDepth   int    `json:"maxDepth"`
			Target     string `json:"target"`
		} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, 3, payload.Metadata.TotalNodes)
	assert.Equal(t, 2, payload.Metadata.MaxDepth)
	assert.Equal(t, "main_content", payload.Metadata.Target)
	assert.Len(t, payload.Nodes, 3)
}
