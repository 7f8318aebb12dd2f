package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/nxtscape/webpilot/pkg/types"
)

var (
	narrationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	thinkingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	planStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// renderer prints bus events to the terminal. Re-published message ids are
// rendered in place: when the repeated id is still the most recent block on
// screen, the block is rewritten with cursor movement instead of appended.
type renderer struct {
	mu        sync.Mutex
	out       io.Writer
	lastMsgID string
	lastLines int
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{out: out}
}

// Handle is the bus subscriber.
func (r *renderer) Handle(event *types.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case event.IsMessage():
		r.renderMessage(event.Message)
	case event.IsExecutionStatus():
		r.renderStatus(event.ExecutionStatus)
	}
}

func (r *renderer) renderMessage(msg *types.MessageEvent) {
	block := r.styleFor(msg)

	if msg.MsgID == r.lastMsgID && r.lastLines > 0 {
		// Upsert of the block just printed: rewrite it in place.
		fmt.Fprintf(r.out, "\033[%dA\033[J", r.lastLines)
	}

	fmt.Fprintln(r.out, block)
	r.lastMsgID = msg.MsgID
	r.lastLines = strings.Count(block, "\n") + 1
}

func (r *renderer) styleFor(msg *types.MessageEvent) string {
	content := strings.TrimRight(msg.Content, "\n")
	switch msg.Role {
	case types.RoleNarration:
		if msg.MsgID == "plan" {
			return planStyle.Render(content)
		}
		return narrationStyle.Render("• " + content)
	case types.RoleError:
		return errorStyle.Render("✗ " + content)
	case types.RoleThinking:
		return thinkingStyle.Render(content)
	default:
		return assistantStyle.Render(content)
	}
}

func (r *renderer) renderStatus(status *types.ExecutionStatusEvent) {
	line := string(status.Status)
	if status.Message != "" {
		line += ": " + status.Message
	}
	if status.Status == types.StatusError {
		fmt.Fprintln(r.out, errorStyle.Render(line))
	} else {
		fmt.Fprintln(r.out, statusStyle.Render(line))
	}
	r.lastMsgID = ""
	r.lastLines = 0
}
