package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/google/uuid"
)

// BrowserOptions configures the headless Chrome session.
type BrowserOptions struct {
	Headless bool
	Width    int
	Height   int
	ExecPath string // optional Chrome binary
	Logger   *slog.Logger
}

// Browser is a Page backed by one Chrome tab driven through chromedp.
// Each scenario should own its own Browser.
type Browser struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// NewBrowser starts Chrome and opens a tab. Close releases both.
func NewBrowser(parent context.Context, opts BrowserOptions) (*Browser, error) {
	if opts.Width == 0 || opts.Height == 0 {
		opts.Width, opts.Height = 1280, 720
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// Start the browser now so launch failures surface here.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &Browser{
		ctx: tabCtx,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
		logger: logger,
	}, nil
}

// Close shuts the tab and the browser process.
func (b *Browser) Close() {
	b.cancel()
}

// run executes actions on the tab, bounded by the caller's ctx.
// Cancelling a context derived with WithCancel aborts the action without
// closing the tab.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(b.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// Navigate loads url and waits for the document body.
func (b *Browser) Navigate(ctx context.Context, url string) error {
	b.logger.Debug("navigate", "url", url)
	return b.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// resolveJS is the in-page implementation of Locator resolution.
// It evaluates to an array of elements, or null when the first element or an
// ancestor does not exist.
const resolveJS = `(function(q) {
	const norm = s => (s || '').replace(/\s+/g, ' ').trim();
	let nodes = Array.from(document.querySelectorAll(q.css || '*'));
	if (q.text) {
		nodes = nodes.filter(n => norm(n.textContent).includes(q.text));
		nodes = nodes.filter(n => !Array.from(n.children).some(c => norm(c.textContent).includes(q.text)));
	}
	let el = nodes[0];
	if (!el) return null;
	for (let i = 0; i < (q.up || 0); i++) {
		el = el.parentElement;
		if (!el) return null;
	}
	if (q.within) return Array.from(el.querySelectorAll(q.within));
	return [el];
})(%s)`

const visibleJS = `n => {
	const r = n.getBoundingClientRect();
	const s = window.getComputedStyle(n);
	return r.width > 0 && r.height > 0 && s.visibility !== 'hidden' && s.display !== 'none';
}`

// eval runs body with `nodes` bound to the resolved elements (or null).
func (b *Browser) eval(ctx context.Context, loc Locator, body string, out any) error {
	query, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("encode locator: %w", err)
	}
	script := fmt.Sprintf("(() => { const nodes = "+resolveJS+"; const visible = %s; %s })()",
		query, visibleJS, body)
	return b.run(ctx, chromedp.Evaluate(script, out))
}

// lookup evaluates body against the first resolved element, failing with
// ErrNotFound when there is none.
func (b *Browser) lookup(ctx context.Context, loc Locator, body string, out any) error {
	var res struct {
		Found bool            `json:"found"`
		Value json.RawMessage `json:"value"`
	}
	wrapped := "if (!nodes || nodes.length === 0) return {found: false}; const el = nodes[0]; return {found: true, value: (() => { " + body + " })()};"
	if err := b.eval(ctx, loc, wrapped, &res); err != nil {
		return err
	}
	if !res.Found {
		return fmt.Errorf("%s: %w", loc, ErrNotFound)
	}
	if out == nil || len(res.Value) == 0 {
		return nil
	}
	return json.Unmarshal(res.Value, out)
}

// mark tags the located element with a one-off attribute so chromedp's
// native input actions can address it by selector.
func (b *Browser) mark(ctx context.Context, loc Locator) (string, error) {
	token := uuid.NewString()
	body := fmt.Sprintf("el.setAttribute('data-formcheck-target', %q); return true;", token)
	if err := b.lookup(ctx, loc, body, nil); err != nil {
		return "", err
	}
	return fmt.Sprintf(`[data-formcheck-target=%q]`, token), nil
}

func (b *Browser) Fill(ctx context.Context, loc Locator, text string) error {
	sel, err := b.mark(ctx, loc)
	if err != nil {
		return err
	}
	return b.run(ctx,
		chromedp.Focus(sel, chromedp.ByQuery),
		chromedp.Evaluate(fmt.Sprintf(`document.querySelector(%q).select()`, sel), nil),
		chromedp.SendKeys(sel, text, chromedp.ByQuery),
	)
}

func (b *Browser) Clear(ctx context.Context, loc Locator) error {
	sel, err := b.mark(ctx, loc)
	if err != nil {
		return err
	}
	return b.run(ctx,
		chromedp.Focus(sel, chromedp.ByQuery),
		chromedp.Evaluate(fmt.Sprintf(`document.querySelector(%q).select()`, sel), nil),
		chromedp.KeyEvent(kb.Backspace),
	)
}

func (b *Browser) Click(ctx context.Context, loc Locator) error {
	sel, err := b.mark(ctx, loc)
	if err != nil {
		return err
	}
	return b.run(ctx, chromedp.Click(sel, chromedp.ByQuery))
}

func (b *Browser) Blur(ctx context.Context) error {
	return b.run(ctx, chromedp.Evaluate(`document.activeElement && document.activeElement.blur()`, nil))
}

func (b *Browser) Select(ctx context.Context, loc Locator, option string) error {
	if err := b.Click(ctx, loc); err != nil {
		return err
	}
	return b.Click(ctx, Locator{CSS: `[role="option"]`, Text: option})
}

func (b *Browser) Value(ctx context.Context, loc Locator) (string, error) {
	var v string
	err := b.lookup(ctx, loc, "return el.value === undefined ? '' : String(el.value);", &v)
	return v, err
}

func (b *Browser) CSS(ctx context.Context, loc Locator, property string) (string, error) {
	var v string
	body := fmt.Sprintf("return window.getComputedStyle(el).getPropertyValue(%q);", property)
	err := b.lookup(ctx, loc, body, &v)
	return v, err
}

func (b *Browser) Visible(ctx context.Context, loc Locator) (bool, error) {
	var v bool
	err := b.eval(ctx, loc, "return !!nodes && nodes.some(visible);", &v)
	return v, err
}

func (b *Browser) Count(ctx context.Context, loc Locator) (int, error) {
	var v int
	err := b.eval(ctx, loc, "return nodes ? nodes.length : 0;", &v)
	return v, err
}

func (b *Browser) Text(ctx context.Context, loc Locator) (string, error) {
	var v string
	err := b.lookup(ctx, loc, "return (el.textContent || '').replace(/\\s+/g, ' ').trim();", &v)
	return v, err
}

func (b *Browser) Enabled(ctx context.Context, loc Locator) (bool, error) {
	var v bool
	err := b.lookup(ctx, loc, "return !el.disabled && el.getAttribute('aria-disabled') !== 'true';", &v)
	return v, err
}

const checkedJS = `const box = el.matches('input[type="checkbox"]') ? el
	: (el.control || el.querySelector('input[type="checkbox"]'));
if (!box) throw new Error('not a checkbox');
return box.checked;`

func (b *Browser) Checked(ctx context.Context, loc Locator) (bool, error) {
	var v bool
	err := b.lookup(ctx, loc, checkedJS, &v)
	return v, err
}

func (b *Browser) URL(ctx context.Context) (string, error) {
	var url string
	err := b.run(ctx, chromedp.Location(&url))
	return url, err
}

var (
	_ Page      = (*Browser)(nil)
	_ Navigator = (*Browser)(nil)
)
