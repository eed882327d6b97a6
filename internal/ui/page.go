package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a locator matches no element.
// Visible and Count report absence without this error.
var ErrNotFound = errors.New("element not found")

// Locator addresses elements on the page.
//
// Resolution: select every element matching CSS (all elements if empty),
// keep those whose whitespace-normalized text contains Text (innermost match
// only), take the first, walk Up parent elements, then query Within if set.
type Locator struct {
	CSS    string `yaml:"css,omitempty" json:"css,omitempty"`
	Text   string `yaml:"text,omitempty" json:"text,omitempty"`
	Up     int    `yaml:"up,omitempty" json:"up,omitempty"`
	Within string `yaml:"within,omitempty" json:"within,omitempty"`
}

// ByCSS returns a locator for the first element matching selector.
func ByCSS(selector string) Locator {
	return Locator{CSS: selector}
}

// ByText returns a locator for the innermost element containing text.
func ByText(text string) Locator {
	return Locator{Text: text}
}

// Ancestor returns a locator for the n-th parent of l's element.
func (l Locator) Ancestor(n int) Locator {
	l.Up += n
	return l
}

// Find returns a locator for descendants of l's element matching selector.
func (l Locator) Find(selector string) Locator {
	l.Within = selector
	return l
}

// IsZero reports whether the locator selects nothing.
func (l Locator) IsZero() bool {
	return l.CSS == "" && l.Text == ""
}

// String renders the locator in a Playwright-like chain for reports.
func (l Locator) String() string {
	var parts []string
	if l.CSS != "" {
		parts = append(parts, l.CSS)
	}
	if l.Text != "" {
		parts = append(parts, fmt.Sprintf("text=%q", l.Text))
	}
	for i := 0; i < l.Up; i++ {
		parts = append(parts, "..")
	}
	if l.Within != "" {
		parts = append(parts, l.Within)
	}
	return strings.Join(parts, " >> ")
}

// Page is the UI substrate: thin input and read primitives over one UI session.
//
// Implementations must be used by a single scenario at a time. Every method
// returns promptly with the current UI value; settling is the caller's
// concern (see Waiter).
type Page interface {
	// Fill replaces the element's value with text, as typed by a user.
	Fill(ctx context.Context, loc Locator, text string) error
	// Clear empties the element's value with input events.
	Clear(ctx context.Context, loc Locator) error
	// Click clicks the element.
	Click(ctx context.Context, loc Locator) error
	// Blur removes focus from the active element.
	Blur(ctx context.Context) error
	// Select opens a listbox input and picks the option with the given name.
	Select(ctx context.Context, loc Locator, option string) error

	// Value returns the element's current input value.
	Value(ctx context.Context, loc Locator) (string, error)
	// CSS returns the computed value of a CSS property.
	CSS(ctx context.Context, loc Locator, property string) (string, error)
	// Visible reports whether any matched element is rendered and visible.
	Visible(ctx context.Context, loc Locator) (bool, error)
	// Count returns the number of matched elements.
	Count(ctx context.Context, loc Locator) (int, error)
	// Text returns the element's normalized text content.
	Text(ctx context.Context, loc Locator) (string, error)
	// Enabled reports whether the element accepts interaction.
	Enabled(ctx context.Context, loc Locator) (bool, error)
	// Checked reports whether a checkbox, or the checkbox a label is for,
	// is checked.
	Checked(ctx context.Context, loc Locator) (bool, error)
	// URL returns the current document URL.
	URL(ctx context.Context) (string, error)
}

// Navigator is implemented by pages that can load a URL.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}
