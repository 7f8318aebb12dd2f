// Package mcp manages external tool servers: installing and uninstalling
// remotely hosted integrations, running their OAuth authorization handshake,
// and proxying tool discovery and invocation to the remote lifecycle API.
package mcp

// ToolInfo describes one tool exposed by an external server.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Instance is an installed external tool server. The remote lifecycle API is
// the source of truth for these; local copies are ephemeral.
type Instance struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	Tools           []ToolInfo `json:"tools,omitempty"`
	AuthNeeded      bool       `json:"authNeeded"`
	IsAuthenticated bool       `json:"isAuthenticated"`
	ServerURL       string     `json:"serverUrl,omitempty"`
}

// ServerInfo describes an installable server from the remote catalog.
type ServerInfo struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Tools       []ToolInfo `json:"tools,omitempty"`
	AuthNeeded  bool       `json:"authNeeded"`
}

// InstallResult is the outcome of InstallServer.
type InstallResult struct {
	// Instance is the created server instance.
	Instance *Instance

	// AuthSuccess reports whether the server ended up authenticated,
	// either because no OAuth was required or because the handshake
	// completed. OAuth non-completion is a soft failure: the caller may
	// retry the install.
	AuthSuccess bool
}

// ReadyState distinguishes the three states of a server by name: not
// installed, installed but unauthenticated, and ready.
type ReadyState struct {
	Installed     bool
	Authenticated bool
	InstanceID    string
}

// ToolResult is the uniform shape every tool-level operation returns.
// Remote-reported tool errors become local failures, never panics.
type ToolResult struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// connectionType is the only transport the lifecycle API is spoken with.
const connectionType = "StreamableHttp"
