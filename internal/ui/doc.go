// Package ui defines the UI substrate the form harness drives.
//
// The harness never talks to a browser directly. It addresses elements with
// Locator values and performs every read and input event through the Page
// interface:
//
//	page.Fill(ctx, ui.ByCSS("#sign-up-form-email"), "user@example.com")
//	page.Blur(ctx)
//	color, err := page.CSS(ctx, ui.ByCSS("#sign-up-form-email"), "border-color")
//
// # Locators
//
// A Locator selects a first element by CSS selector and/or visible text, walks
// Up parent elements from it, and optionally queries Within the resulting
// node. This is how status indicators are addressed relative to an input
// without a global selector:
//
//	ui.ByCSS("#location").Ancestor(2).Find(`svg[data-testid="icon-svg"]`)
//
// # Waiting
//
// UI state settles asynchronously relative to the input event that changed
// it, so reads go through a Waiter: a bounded poll that fails with a
// *TimeoutError when the deadline elapses. A timeout is never reported as
// "element confirmed absent".
//
// # Backends
//
// Browser drives a headless Chrome through chromedp. Tests use the simulated
// form in internal/testutil.
package ui
