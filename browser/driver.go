// Package browser drives the target chat UI with a real Chrome instance.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"promptbuddies/orchestrator"
)

// ErrNotOpen is returned by page operations before Open succeeds.
var ErrNotOpen = errors.New("browser session not open")

// deepFind returns the first element matching css anywhere in the document,
// open shadow roots included, that also carries text when text is set.
const deepFind = `(css, text) => {
	const matches = (el) => {
		if (!text) return true;
		const label = el.getAttribute('aria-label') || el.getAttribute('placeholder') || '';
		const content = el.innerText || el.textContent || '';
		return label.includes(text) || content.includes(text);
	};
	const walk = (root) => {
		for (const el of root.querySelectorAll(css)) {
			if (matches(el)) return el;
		}
		for (const host of root.querySelectorAll('*')) {
			if (!host.shadowRoot) continue;
			const found = walk(host.shadowRoot);
			if (found) return found;
		}
		return null;
	};
	return walk(document);
}`

// readLatest collects the marker, last paragraph and button labels.
const readLatest = `(hostCSS, itemCSS, textCSS, buttonCSS) => {
	const all = (root, css, out) => {
		out.push(...root.querySelectorAll(css));
		for (const host of root.querySelectorAll('*')) {
			if (host.shadowRoot) all(host.shadowRoot, css, out);
		}
		return out;
	};
	const hosts = all(document, hostCSS, []);
	if (hosts.length === 0) return null;
	const host = hosts[hosts.length - 1];
	const scope = host.shadowRoot || host;

	const items = all(scope, itemCSS, []);
	const marker = items.length ? String(items[items.length - 1].className || '') : '';

	const paragraphs = all(scope, textCSS, []);
	const text = paragraphs.length ? paragraphs[paragraphs.length - 1].innerText || '' : '';

	const buttons = all(document, buttonCSS, []).map((b) => {
		const slot = b.shadowRoot && b.shadowRoot.querySelector('slot');
		const nodes = slot ? slot.assignedNodes() : [b];
		return nodes.map((n) => n.textContent || '').join('').trim();
	});
	return { marker, text, buttons };
}`

// Options configure a Driver.
type Options struct {
	URL      string
	Login    string
	Password string
	OTP      string

	Headless bool
	// DebuggerURL attaches to a running Chrome instead of launching one.
	DebuggerURL string
	// Bin overrides the Chrome binary the launcher uses.
	Bin string
	// NavigationTimeout bounds each element lookup. Defaults to 30s.
	NavigationTimeout time.Duration
	Selectors         Selectors
	Logger            *zap.Logger
}

// Driver is one logged-in chat tab. It satisfies orchestrator.Driver.
type Driver struct {
	opts   Options
	logger *zap.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

var _ orchestrator.Driver = (*Driver)(nil)

func New(opts Options) *Driver {
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 30 * time.Second
	}
	opts.Selectors = opts.Selectors.withDefaults()
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{opts: opts, logger: logger.Named("browser")}
}

// Open starts or attaches to Chrome, logs in, opens the chat and resets
// the conversation.
func (d *Driver) Open(ctx context.Context) error {
	if err := d.connect(); err != nil {
		return err
	}
	if err := d.navigate(ctx, d.opts.URL); err != nil {
		return err
	}
	if err := d.login(ctx); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return d.Send(ctx, orchestrator.ResetToken)
}

func (d *Driver) connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.browser != nil {
		return nil
	}

	controlURL := d.opts.DebuggerURL
	if controlURL == "" {
		l := launcher.New().Headless(d.opts.Headless)
		if d.opts.Bin != "" {
			l = l.Bin(d.opts.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("launch chrome: %w", err)
		}
		d.launcher = l
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		d.killLauncher()
		return fmt.Errorf("connect to chrome: %w", err)
	}
	d.browser = b
	d.logger.Info("connected to chrome", zap.Bool("headless", d.opts.Headless), zap.Bool("attached", d.opts.DebuggerURL != ""))
	return nil
}

func (d *Driver) navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.browser == nil {
		return ErrNotOpen
	}
	page, err := d.browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return fmt.Errorf("open page %s: %w", url, err)
	}
	if err := page.Context(ctx).WaitLoad(); err != nil {
		_ = page.Close()
		return fmt.Errorf("wait for page load: %w", err)
	}
	d.page = page
	return nil
}

func (d *Driver) login(ctx context.Context) error {
	s := d.opts.Selectors
	steps := []struct {
		name string
		run  func() error
	}{
		{"login", func() error { return d.fill(ctx, s.Login, d.opts.Login) }},
		{"password", func() error { return d.fill(ctx, s.Password, d.opts.Password) }},
		{"submit", func() error { return d.click(ctx, s.Submit) }},
		{"otp", func() error { return d.fill(ctx, s.OTP, d.opts.OTP) }},
		{"confirm otp", func() error { return d.click(ctx, s.ConfirmOTP) }},
		{"close dialog", func() error { return d.click(ctx, s.CloseDialog) }},
		{"chat icon", func() error { return d.click(ctx, s.ChatIcon) }},
		{"chat tab", func() error { return d.click(ctx, s.ChatTab) }},
	}
	for _, step := range steps {
		d.logger.Debug("login step", zap.String("step", step.name))
		if err := step.run(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}
	return nil
}

// Send types text into the chat box and submits it.
func (d *Driver) Send(ctx context.Context, text string) error {
	if err := d.fill(ctx, d.opts.Selectors.Textbox, text); err != nil {
		return fmt.Errorf("type message: %w", err)
	}
	if err := d.click(ctx, d.opts.Selectors.SendButton); err != nil {
		return fmt.Errorf("submit message: %w", err)
	}
	return nil
}

type latest struct {
	Marker  string   `json:"marker"`
	Text    string   `json:"text"`
	Buttons []string `json:"buttons"`
}

// Latest reads the last rendered turn. An empty chat reads as a zero
// Inbound.
func (d *Driver) Latest(ctx context.Context) (orchestrator.Inbound, error) {
	page, err := d.currentPage()
	if err != nil {
		return orchestrator.Inbound{}, err
	}
	s := d.opts.Selectors
	res, err := page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:      readLatest,
		JSArgs:  []interface{}{s.Messages, s.MessageItems, s.MessageText, s.Button},
		ByValue: true,
	})
	if err != nil {
		return orchestrator.Inbound{}, fmt.Errorf("read messages: %w", err)
	}
	if res == nil || res.Value.Nil() {
		return orchestrator.Inbound{}, nil
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return orchestrator.Inbound{}, fmt.Errorf("marshal messages: %w", err)
	}
	var l latest
	if err := json.Unmarshal(raw, &l); err != nil {
		return orchestrator.Inbound{}, fmt.Errorf("decode messages: %w", err)
	}
	return orchestrator.Inbound{Text: l.Text, Marker: l.Marker, Buttons: l.Buttons}, nil
}

// Close shuts the tab and the browser. It is safe to call more than once.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	if d.page != nil {
		if err := d.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
		d.page = nil
	}
	if d.browser != nil {
		if err := d.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
		d.browser = nil
	}
	d.killLauncher()
	return errors.Join(errs...)
}

func (d *Driver) killLauncher() {
	if d.launcher == nil {
		return
	}
	d.launcher.Kill()
	d.launcher.Cleanup()
	d.launcher = nil
}

func (d *Driver) currentPage() (*rod.Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.page == nil {
		return nil, ErrNotOpen
	}
	return d.page, nil
}

// find waits for sel until the navigation timeout expires.
func (d *Driver) find(ctx context.Context, sel Selector) (*rod.Element, context.CancelFunc, error) {
	page, err := d.currentPage()
	if err != nil {
		return nil, nil, err
	}
	tctx, cancel := context.WithTimeout(ctx, d.opts.NavigationTimeout)
	el, err := page.Context(tctx).ElementByJS(rod.Eval(deepFind, sel.CSS, sel.Text))
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("find %q %q: %w", sel.CSS, sel.Text, err)
	}
	return el, cancel, nil
}

func (d *Driver) fill(ctx context.Context, sel Selector, text string) error {
	el, cancel, err := d.find(ctx, sel)
	if err != nil {
		return err
	}
	defer cancel()
	if err := el.SelectAllText(); err != nil {
		d.logger.Debug("select text failed", zap.String("css", sel.CSS), zap.Error(err))
	}
	return el.Input(text)
}

func (d *Driver) click(ctx context.Context, sel Selector) error {
	el, cancel, err := d.find(ctx, sel)
	if err != nil {
		return err
	}
	defer cancel()
	return el.Click(proto.InputMouseButtonLeft, 1)
}
