package browser

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/nxtscape/webpilot/pkg/a11y"
)

// Default values for driver operations.
const (
	DefaultTimeout        = 30000.0 // milliseconds
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
)

// PlaywrightDriver implements Driver on a Chromium instance managed through
// playwright-go.
type PlaywrightDriver struct {
	mu       sync.Mutex
	pw       *playwright.Playwright
	browser  playwright.Browser
	context  playwright.BrowserContext
	page     playwright.Page
	headless bool
	started  bool
}

// DriverOption configures a PlaywrightDriver.
type DriverOption func(*PlaywrightDriver)

// WithHeadless controls whether the browser runs without a visible window.
func WithHeadless(headless bool) DriverOption {
	return func(d *PlaywrightDriver) {
		d.headless = headless
	}
}

// NewPlaywrightDriver creates an unstarted driver. Call Start before use.
func NewPlaywrightDriver(opts ...DriverOption) *PlaywrightDriver {
	d := &PlaywrightDriver{headless: true}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start installs and launches Playwright Chromium with a single page.
func (d *PlaywrightDriver) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return nil
	}

	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(runOpts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &d.headless,
	})
	if err != nil {
		pw.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		browser.Close()
		pw.Stop()
		return fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(DefaultTimeout)

	d.pw = pw
	d.browser = browser
	d.context = bctx
	d.page = page
	d.started = true
	return nil
}

// Close tears down the browser and the Playwright instance.
func (d *PlaywrightDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started {
		return nil
	}
	_ = d.page.Close()
	_ = d.context.Close()
	_ = d.browser.Close()
	err := d.pw.Stop()
	d.started = false
	return err
}

// Navigate loads the URL and waits for the load event.
func (d *PlaywrightDriver) Navigate(ctx context.Context, url string) error {
	page, err := d.currentPage()
	if err != nil {
		return err
	}
	waitUntil := playwright.WaitUntilStateLoad
	if _, err := page.Goto(url, playwright.PageGotoOptions{WaitUntil: waitUntil}); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// GetState snapshots the page's interactive elements. Each element is tagged
// in the DOM with a data attribute carrying its snapshot index, so that
// Click and Type can address it without re-querying by text.
func (d *PlaywrightDriver) GetState(ctx context.Context) (*State, error) {
	page, err := d.currentPage()
	if err != nil {
		return nil, err
	}

	raw, err := page.Evaluate(snapshotScript)
	if err != nil {
		return nil, fmt.Errorf("element snapshot failed: %w", err)
	}

	var snapshot struct {
		Clickable []rawElement `json:"clickable"`
		Typeable  []rawElement `json:"typeable"`
	}
	if err := remarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("element snapshot decode failed: %w", err)
	}

	state := &State{URL: page.URL()}
	if title, err := page.Title(); err == nil {
		state.Title = title
	}
	for _, el := range snapshot.Clickable {
		state.ClickableElements = append(state.ClickableElements, el.toElement(KindClickable))
	}
	for _, el := range snapshot.Typeable {
		state.TypeableElements = append(state.TypeableElements, el.toElement(KindTypeable))
	}
	state.RenderListings()

	if shot, err := page.Screenshot(); err == nil {
		state.ScreenshotB64 = base64.StdEncoding.EncodeToString(shot)
	}
	return state, nil
}

// GetAccessibilityTree captures an id-indexed accessibility tree computed
// from the live DOM.
func (d *PlaywrightDriver) GetAccessibilityTree(ctx context.Context) (*a11y.RawTree, error) {
	page, err := d.currentPage()
	if err != nil {
		return nil, err
	}

	raw, err := page.Evaluate(a11yScript)
	if err != nil {
		return nil, fmt.Errorf("accessibility snapshot failed: %w", err)
	}

	var tree a11y.RawTree
	if err := remarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("accessibility snapshot decode failed: %w", err)
	}
	return &tree, nil
}

// Click clicks the element tagged with the given snapshot index.
func (d *PlaywrightDriver) Click(ctx context.Context, index int) error {
	page, err := d.currentPage()
	if err != nil {
		return err
	}
	selector := fmt.Sprintf(`[data-webpilot-index="%d"]`, index)
	if err := page.Locator(selector).First().Click(); err != nil {
		return fmt.Errorf("click on element %d failed: %w", index, err)
	}
	return nil
}

// Type fills the element tagged with the given snapshot index.
func (d *PlaywrightDriver) Type(ctx context.Context, index int, text string) error {
	page, err := d.currentPage()
	if err != nil {
		return err
	}
	selector := fmt.Sprintf(`[data-webpilot-index="%d"]`, index)
	if err := page.Locator(selector).First().Fill(text); err != nil {
		return fmt.Errorf("type into element %d failed: %w", index, err)
	}
	return nil
}

// OpenTab opens a new page in the same browser context.
func (d *PlaywrightDriver) OpenTab(ctx context.Context, url string) (Tab, error) {
	d.mu.Lock()
	bctx := d.context
	started := d.started
	d.mu.Unlock()

	if !started {
		return nil, fmt.Errorf("driver not started")
	}

	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	tab := &playwrightTab{page: page, closed: make(chan struct{})}
	page.OnClose(func(playwright.Page) {
		tab.markClosed()
	})

	if _, err := page.Goto(url); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("failed to load %s: %w", url, err)
	}
	return tab, nil
}

func (d *PlaywrightDriver) currentPage() (playwright.Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started {
		return nil, fmt.Errorf("driver not started")
	}
	return d.page, nil
}

// playwrightTab implements Tab over a secondary page.
type playwrightTab struct {
	page      playwright.Page
	closed    chan struct{}
	closeOnce sync.Once
}

func (t *playwrightTab) Closed() <-chan struct{} {
	return t.closed
}

func (t *playwrightTab) Close() error {
	err := t.page.Close()
	t.markClosed()
	return err
}

func (t *playwrightTab) markClosed() {
	t.closeOnce.Do(func() {
		close(t.closed)
	})
}

// rawElement is the wire shape emitted by snapshotScript.
type rawElement struct {
	Index      int               `json:"index"`
	Tag        string            `json:"tag"`
	Text       string            `json:"text"`
	Context    string            `json:"context"`
	Path       string            `json:"path"`
	Attributes map[string]string `json:"attributes"`
}

func (r rawElement) toElement(kind ElementKind) Element {
	return Element{
		Index:      r.Index,
		Kind:       kind,
		Tag:        r.Tag,
		Text:       CleanText(r.Text),
		Context:    CleanText(r.Context),
		Path:       r.Path,
		Attributes: r.Attributes,
	}
}

// remarshal converts the loosely-typed Evaluate result into a typed struct
// through a JSON round trip.
func remarshal(in interface{}, out interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
