package mcp

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nxtscape/webpilot/pkg/browser"
	"github.com/nxtscape/webpilot/pkg/logging"
)

// OAuth handshake timing. The settle delay gives the remote side time to
// record the instance before the first poll; the timeout is the absolute
// bound after which the handshake is abandoned.
const (
	DefaultOAuthSettleDelay  = 3 * time.Second
	DefaultOAuthPollInterval = 5 * time.Second
	DefaultOAuthTimeout      = 5 * time.Minute
)

// Manager owns the durable user identity and the install/uninstall lifecycle
// of external tool servers, including the OAuth authorization handshake.
// One Manager is constructed per process and passed to whatever needs it.
type Manager struct {
	client       *Client
	store        IdentityStore
	driver       browser.Driver
	logger       *logging.Logger
	platformName string

	mu     sync.Mutex
	userID string

	settleDelay  time.Duration
	pollInterval time.Duration
	oauthTimeout time.Duration
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithOAuthTiming overrides the handshake timing. Intended for tests.
func WithOAuthTiming(settle, poll, timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.settleDelay = settle
		m.pollInterval = poll
		m.oauthTimeout = timeout
	}
}

// NewManager creates a lifecycle manager.
func NewManager(client *Client, store IdentityStore, driver browser.Driver, platformName string, opts ...ManagerOption) *Manager {
	logger, _ := logging.NewLogger("mcp")
	m := &Manager{
		client:       client,
		store:        store,
		driver:       driver,
		logger:       logger,
		platformName: platformName,
		settleDelay:  DefaultOAuthSettleDelay,
		pollInterval: DefaultOAuthPollInterval,
		oauthTimeout: DefaultOAuthTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetUserID returns the durable user identity: cached if present, else read
// from the store, else synthesized and persisted. Persistence failure is
// logged and tolerated — the id stays usable in memory for the session.
func (m *Manager) GetUserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.userID != "" {
		return m.userID
	}

	if stored, err := m.store.Load(); err != nil {
		m.logger.Warnf("failed to load user id: %v", err)
	} else if stored != "" {
		m.userID = stored
		return m.userID
	}

	m.userID = generateUserID()
	if err := m.store.Save(m.userID); err != nil {
		m.logger.Warnf("failed to persist user id, continuing in-memory: %v", err)
	}
	return m.userID
}

// InstallServer creates a remote instance for the named server. When the
// remote response carries an OAuth URL the authorization handshake is run;
// otherwise the install is immediately authenticated.
func (m *Manager) InstallServer(ctx context.Context, name string) (*InstallResult, error) {
	userID := m.GetUserID()

	created, err := m.client.CreateInstance(ctx, name, userID, m.platformName)
	if err != nil {
		return nil, fmt.Errorf("failed to install server %q: %w", name, err)
	}

	instance := &Instance{
		ID:        created.InstanceID,
		Name:      name,
		ServerURL: created.ServerURL,
	}

	if created.OAuthURL == "" {
		instance.IsAuthenticated = true
		return &InstallResult{Instance: instance, AuthSuccess: true}, nil
	}

	instance.AuthNeeded = true
	authSuccess := m.runOAuthHandshake(ctx, created.OAuthURL, created.InstanceID)
	instance.IsAuthenticated = authSuccess
	return &InstallResult{Instance: instance, AuthSuccess: authSuccess}, nil
}

// runOAuthHandshake opens an interactive tab at the OAuth URL and races
// three triggers to a single resolution: the user closing the tab (false),
// the auth poll reporting success (true, tab closed), and the absolute
// timeout (false, tab closed). Exactly one trigger wins; the shared context
// cancels the losers, and the tab-close call happens at most once.
func (m *Manager) runOAuthHandshake(ctx context.Context, oauthURL, instanceID string) bool {
	tab, err := m.driver.OpenTab(ctx, oauthURL)
	if err != nil {
		m.logger.Errorf("failed to open OAuth tab: %v", err)
		return false
	}

	raceCtx, cancel := context.WithTimeout(ctx, m.oauthTimeout)
	defer cancel()

	pollSuccess := make(chan struct{})
	go m.pollAuth(raceCtx, instanceID, pollSuccess)

	select {
	case <-tab.Closed():
		// User abandoned the flow; the tab is already gone.
		m.logger.Infof("OAuth tab closed by user for instance %s", instanceID)
		return false
	case <-pollSuccess:
		if err := tab.Close(); err != nil {
			m.logger.Warnf("failed to close OAuth tab: %v", err)
		}
		return true
	case <-raceCtx.Done():
		m.logger.Infof("OAuth handshake timed out for instance %s", instanceID)
		if err := tab.Close(); err != nil {
			m.logger.Warnf("failed to close OAuth tab: %v", err)
		}
		return false
	}
}

// pollAuth polls the auth metadata endpoint until it reports an
// authenticated state or the context is cancelled. It closes done on the
// first success and exits on cancellation, so the winner of the race always
// tears it down.
func (m *Manager) pollAuth(ctx context.Context, instanceID string, done chan<- struct{}) {
	select {
	case <-time.After(m.settleDelay):
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		status, err := m.client.GetAuthStatus(ctx, instanceID)
		if err != nil {
			m.logger.Debugf("auth poll for %s: %v", instanceID, err)
		} else if status.Authenticated() {
			close(done)
			return
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// GetInstalledServers lists the servers installed for this user.
func (m *Manager) GetInstalledServers(ctx context.Context) ([]Instance, error) {
	return m.client.GetUserInstances(ctx, m.GetUserID(), m.platformName)
}

// DeleteServer uninstalls a server instance.
func (m *Manager) DeleteServer(ctx context.Context, instanceID string) error {
	return m.client.DeleteInstance(ctx, instanceID)
}

// GetAvailableServers lists the installable server catalog.
func (m *Manager) GetAvailableServers(ctx context.Context) ([]ServerInfo, error) {
	return m.client.GetAvailableServers(ctx)
}

// IsServerReady looks a server up by name among the installed instances,
// case-insensitively, and reports which of the three states it is in: not
// installed, installed but unauthenticated, or ready.
func (m *Manager) IsServerReady(ctx context.Context, name string) (*ReadyState, error) {
	instances, err := m.GetInstalledServers(ctx)
	if err != nil {
		return nil, err
	}

	for _, instance := range instances {
		if strings.EqualFold(instance.Name, name) {
			return &ReadyState{
				Installed:     true,
				Authenticated: !instance.AuthNeeded || instance.IsAuthenticated,
				InstanceID:    instance.ID,
			}, nil
		}
	}
	return &ReadyState{}, nil
}
