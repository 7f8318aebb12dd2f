package config

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// ServerPolicy decides which external tool servers the agent may install,
// based on compiled glob patterns from the config's server whitelist.
type ServerPolicy struct {
	patterns []glob.Glob
}

// NewServerPolicy compiles the whitelist patterns. An empty pattern list
// produces a policy that allows every server.
func NewServerPolicy(patterns []string) (*ServerPolicy, error) {
	policy := &ServerPolicy{}
	for _, pattern := range patterns {
		g, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid server whitelist pattern %q: %w", pattern, err)
		}
		policy.patterns = append(policy.patterns, g)
	}
	return policy, nil
}

// Allowed reports whether a server name matches the whitelist. Matching is
// case-insensitive, consistent with how installed servers are looked up.
func (p *ServerPolicy) Allowed(serverName string) bool {
	if len(p.patterns) == 0 {
		return true
	}
	name := strings.ToLower(serverName)
	for _, g := range p.patterns {
		if g.Match(name) {
			return true
		}
	}
	return false
}
