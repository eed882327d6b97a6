package testutil

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/net/html"

	"github.com/roach88/formcheck/internal/ui"
)

// Colors and markers rendered by the simulated signup form.
const (
	NeutralBorder = "rgb(0, 0, 0)"
	ErrorBorder   = "rgb(236, 39, 43)"
	SuccessFill   = "#93BD49"
	ErrorFill     = "#EC272B"
	FormURL       = "https://staging.example.com/id/en/signup-email"
	BusyLabel     = "Please wait..."
	SubmitLabel   = "Sign up"
	Newsletter    = "Yes, fill me in on the latest"
)

// FakeField describes one input of the simulated form.
type FakeField struct {
	ID           string
	InputAttrs   []string // attributes identifying the input, e.g. "id", "sign-up-form-email"
	Message      string   // required message
	Required     bool
	HasErrorIcon bool
	Options      []string // non-empty for a listbox field
	Validate     func(string) bool
}

type fieldState struct {
	value    string
	touched  bool
	wasValid bool
	stickyOK bool   // defect: clearing a valid field keeps the success icon
	border   string // rendered border color overriding the design tokens
}

// FakeForm is an in-memory signup form implementing ui.Page.
//
// It renders an HTML document after each input event: the input sits two
// levels below its wrapper, which also holds the status icon, and required
// messages appear as text nodes. Validation feedback is shown once a field
// has been defocused or the form submitted. The newsletter checkbox starts
// checked and clicking its label toggles it.
type FakeForm struct {
	mu       sync.Mutex
	fields   []FakeField
	state    map[string]*fieldState
	focused  string
	listOpen string
	busy     bool
	optOut   bool // newsletter unchecked
	url      string
	nesting  int // extra wrappers between input and its field container
	lag      int // reads before a render becomes visible
	pending  int
	dirty    bool
	root     *html.Node

	Clicks  int
	Submits int
}

// FormOption customizes a FakeForm.
type FormOption func(*FakeForm)

// WithStickySuccess reproduces the defect where clearing a previously valid
// field leaves its success icon visible and shows no error.
func WithStickySuccess(fieldID string) FormOption {
	return func(f *FakeForm) {
		if st, ok := f.state[fieldID]; ok {
			st.stickyOK = true
		}
	}
}

// WithBorderColor renders fieldID's border in color whatever its state,
// e.g. a translucent value outside the design tokens.
func WithBorderColor(fieldID, color string) FormOption {
	return func(f *FakeForm) {
		if st, ok := f.state[fieldID]; ok {
			st.border = color
		}
	}
}

// WithExtraNesting inserts n wrappers between each input and its container,
// breaking fixed-depth indicator traversal.
func WithExtraNesting(n int) FormOption {
	return func(f *FakeForm) { f.nesting = n }
}

// WithLag delays each render until n further reads have happened.
func WithLag(n int) FormOption {
	return func(f *FakeForm) { f.lag = n }
}

// WithFields replaces the default signup fields.
func WithFields(fields ...FakeField) FormOption {
	return func(f *FakeForm) {
		f.fields = fields
		f.state = make(map[string]*fieldState, len(fields))
		for _, fd := range fields {
			f.state[fd.ID] = &fieldState{}
		}
	}
}

// SignupFields returns the six fields of the signup form.
func SignupFields() []FakeField {
	nonEmpty := func(s string) bool { return strings.TrimSpace(s) != "" }
	return []FakeField{
		{ID: "firstName", InputAttrs: []string{"id", "sign-up-form-first-name"}, Message: "First name is required.", Required: true, HasErrorIcon: true, Validate: nonEmpty},
		{ID: "lastName", InputAttrs: []string{"id", "sign-up-form-last-name"}, Message: "Last name is required.", Required: true, HasErrorIcon: true, Validate: nonEmpty},
		{ID: "email", InputAttrs: []string{"id", "sign-up-form-email"}, Message: "Email is required.", Required: true, HasErrorIcon: true, Validate: func(s string) bool {
			a, err := mail.ParseAddress(s)
			return err == nil && a.Address == s
		}},
		{ID: "password", InputAttrs: []string{"id", "sign-up-form-password"}, Message: "Password is required", Required: true, HasErrorIcon: true, Validate: func(s string) bool {
			var upper, digit bool
			for _, r := range s {
				upper = upper || unicode.IsUpper(r)
				digit = digit || unicode.IsDigit(r)
			}
			return len(s) >= 8 && upper && digit
		}},
		{ID: "location", InputAttrs: []string{"id", "location", "role", "combobox"}, Message: "Your location is required.", Required: true, HasErrorIcon: false, Options: []string{"Kab. Morowali, Sulawesi Tengah", "Jakarta Selatan, DKI Jakarta"}, Validate: nonEmpty},
		{ID: "whatsApp", InputAttrs: []string{"aria-label", "WhatsApp Number"}, Message: "WhatsApp number is required.", Required: true, HasErrorIcon: true, Validate: func(s string) bool {
			if len(s) < 9 {
				return false
			}
			for _, r := range s {
				if !unicode.IsDigit(r) {
					return false
				}
			}
			return true
		}},
	}
}

// NewFakeForm creates the simulated signup form.
func NewFakeForm(opts ...FormOption) *FakeForm {
	f := &FakeForm{url: FormURL}
	WithFields(SignupFields()...)(f)
	for _, opt := range opts {
		opt(f)
	}
	f.root = f.render()
	return f
}

// Navigate resets the form, as a fresh page load would.
func (f *FakeForm) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.url = url
	for id, st := range f.state {
		f.state[id] = &fieldState{stickyOK: st.stickyOK, border: st.border}
	}
	f.focused, f.listOpen, f.busy, f.optOut = "", "", false, false
	f.root = f.render()
	f.dirty, f.pending = false, 0
	return nil
}

func (f *FakeForm) field(id string) FakeField {
	for _, fd := range f.fields {
		if fd.ID == id {
			return fd
		}
	}
	return FakeField{}
}

func (f *FakeForm) requiredEmpty() bool {
	for _, fd := range f.fields {
		if fd.Required && strings.TrimSpace(f.state[fd.ID].value) == "" {
			return true
		}
	}
	return false
}

// render builds the document from the current field state.
func (f *FakeForm) render() *html.Node {
	body := El("body")
	form := El("form", "id", "sign-up-form")
	Append(body, form)

	for _, fd := range f.fields {
		st := f.state[fd.ID]
		input := El("input", fd.InputAttrs...)
		SetAttr(input, "data-field", fd.ID)
		SetAttr(input, "value", st.value)
		SetStyle(input, "border-color", NeutralBorder)

		// Innermost element holding the input.
		holder := Append(El("div", "class", "input-control"), input)
		for i := 0; i < f.nesting; i++ {
			holder = Append(El("div", "class", "extra"), holder)
		}
		wrapper := Append(El("div", "class", "field-wrapper"), holder)
		Append(form, wrapper)

		if st.touched {
			f.renderFeedback(fd, st, form, wrapper, input)
		}
		if st.border != "" {
			SetStyle(input, "border-color", st.border)
		}
	}

	if f.listOpen != "" {
		list := El("ul", "role", "listbox")
		for _, opt := range f.field(f.listOpen).Options {
			Append(list, WithText(El("li", "role", "option"), opt))
		}
		Append(body, list)
	}

	label := SubmitLabel
	if f.busy {
		label = BusyLabel
	}
	button := WithText(El("button", "type", "submit"), label)
	if f.requiredEmpty() {
		SetAttr(button, "aria-disabled", "true")
	}
	Append(form, button)

	checkbox := El("input", "type", "checkbox", "name", "newsletter")
	if !f.optOut {
		SetAttr(checkbox, "checked", "")
	}
	Append(form, WithText(Append(El("label", "class", "newsletter"), checkbox), Newsletter))
	return body
}

// renderFeedback adds the validation feedback of a touched field.
func (f *FakeForm) renderFeedback(fd FakeField, st *fieldState, form, wrapper, input *html.Node) {
	empty := strings.TrimSpace(st.value) == ""
	valid := !empty && fd.Validate(st.value)
	switch {
	case st.stickyOK && empty && st.wasValid:
		Append(wrapper, El("svg", "data-testid", "icon-svg", "fill", SuccessFill))
	case valid:
		Append(wrapper, El("svg", "data-testid", "icon-svg", "fill", SuccessFill))
		st.wasValid = true
	case empty && !fd.Required:
		st.wasValid = false
	default:
		SetStyle(input, "border-color", ErrorBorder)
		if fd.HasErrorIcon {
			Append(wrapper, El("svg", "data-testid", "icon-svg", "fill", ErrorFill))
		}
		if empty {
			Append(form, WithText(El("p", "class", "error-message"), fd.Message))
		}
		st.wasValid = false
	}
}

// changed schedules a render, honoring the configured lag.
func (f *FakeForm) changed() {
	f.dirty = true
	f.pending = f.lag
	if f.lag == 0 {
		f.root = f.render()
		f.dirty = false
	}
}

// settle is called before every read.
func (f *FakeForm) settle() {
	if !f.dirty {
		return
	}
	if f.pending > 0 {
		f.pending--
		return
	}
	f.root = f.render()
	f.dirty = false
}

// resolve implements ui.Locator resolution against the current document.
func (f *FakeForm) resolve(loc ui.Locator) ([]*html.Node, error) {
	nodes, err := QueryAll(f.root, loc.CSS)
	if err != nil {
		return nil, err
	}
	if loc.Text != "" {
		var matched []*html.Node
		for _, n := range nodes {
			if !strings.Contains(TextContent(n), loc.Text) {
				continue
			}
			inner := false
			for _, c := range Elements(n) {
				if strings.Contains(TextContent(c), loc.Text) {
					inner = true
					break
				}
			}
			if !inner {
				matched = append(matched, n)
			}
		}
		nodes = matched
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	el := nodes[0]
	for i := 0; i < loc.Up; i++ {
		if el.Parent == nil || el.Parent.Type != html.ElementNode {
			return nil, nil
		}
		el = el.Parent
	}
	if loc.Within != "" {
		return QueryAll(el, loc.Within)
	}
	return []*html.Node{el}, nil
}

func (f *FakeForm) first(loc ui.Locator) (*html.Node, error) {
	nodes, err := f.resolve(loc)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%s: %w", loc, ui.ErrNotFound)
	}
	return nodes[0], nil
}

func (f *FakeForm) inputField(loc ui.Locator) (string, error) {
	n, err := f.first(loc)
	if err != nil {
		return "", err
	}
	id := Attr(n, "data-field")
	if id == "" {
		return "", fmt.Errorf("%s is not an input", loc)
	}
	return id, nil
}

// blurLocked defocuses the focused field, marking it touched.
func (f *FakeForm) blurLocked() {
	if f.focused != "" {
		f.state[f.focused].touched = true
	}
	f.focused = ""
}

func (f *FakeForm) Fill(ctx context.Context, loc ui.Locator, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settle()
	id, err := f.inputField(loc)
	if err != nil {
		return err
	}
	if f.focused != id {
		f.blurLocked()
	}
	f.focused = id
	f.state[id].value = text
	f.busy = false
	f.changed()
	return nil
}

func (f *FakeForm) Clear(ctx context.Context, loc ui.Locator) error {
	return f.Fill(ctx, loc, "")
}

func (f *FakeForm) Click(ctx context.Context, loc ui.Locator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settle()
	n, err := f.first(loc)
	if err != nil {
		return err
	}
	f.Clicks++

	switch {
	case n.Data == "button":
		f.blurLocked()
		f.Submits++
		for _, st := range f.state {
			st.touched = true
		}
		// A submit is only accepted once every required field holds a value.
		f.busy = !f.requiredEmpty()
	case Attr(n, "role") == "option":
		if f.listOpen != "" {
			f.state[f.listOpen].value = TextContent(n)
			f.state[f.listOpen].touched = true
		}
		f.listOpen = ""
		f.focused = ""
	case Attr(n, "data-field") != "":
		id := Attr(n, "data-field")
		if f.focused != id {
			f.blurLocked()
		}
		f.focused = id
		if len(f.field(id).Options) > 0 {
			f.listOpen = id
		}
	case checkbox(n) != nil:
		f.blurLocked()
		f.optOut = !f.optOut
	default:
		f.blurLocked()
	}
	f.changed()
	return nil
}

func (f *FakeForm) Blur(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settle()
	f.blurLocked()
	f.listOpen = ""
	f.changed()
	return nil
}

func (f *FakeForm) Select(ctx context.Context, loc ui.Locator, option string) error {
	if err := f.Click(ctx, loc); err != nil {
		return err
	}
	return f.Click(ctx, ui.Locator{CSS: `[role="option"]`, Text: option})
}

func (f *FakeForm) Value(ctx context.Context, loc ui.Locator) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settle()
	n, err := f.first(loc)
	if err != nil {
		return "", err
	}
	return Attr(n, "value"), nil
}

func (f *FakeForm) CSS(ctx context.Context, loc ui.Locator, property string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settle()
	n, err := f.first(loc)
	if err != nil {
		return "", err
	}
	return Style(n, property), nil
}

func (f *FakeForm) Visible(ctx context.Context, loc ui.Locator) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settle()
	nodes, err := f.resolve(loc)
	if err != nil {
		return false, err
	}
	for _, n := range nodes {
		if IsVisible(n) {
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeForm) Count(ctx context.Context, loc ui.Locator) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settle()
	nodes, err := f.resolve(loc)
	return len(nodes), err
}

func (f *FakeForm) Text(ctx context.Context, loc ui.Locator) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settle()
	n, err := f.first(loc)
	if err != nil {
		return "", err
	}
	return TextContent(n), nil
}

func (f *FakeForm) Enabled(ctx context.Context, loc ui.Locator) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settle()
	n, err := f.first(loc)
	if err != nil {
		return false, err
	}
	return !HasAttr(n, "disabled") && Attr(n, "aria-disabled") != "true", nil
}

func (f *FakeForm) Checked(ctx context.Context, loc ui.Locator) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settle()
	n, err := f.first(loc)
	if err != nil {
		return false, err
	}
	box := checkbox(n)
	if box == nil {
		return false, fmt.Errorf("%s is not a checkbox", loc)
	}
	return HasAttr(box, "checked"), nil
}

// checkbox returns n if it is a checkbox, or the checkbox of the label n.
func checkbox(n *html.Node) *html.Node {
	isBox := func(x *html.Node) bool { return x.Data == "input" && Attr(x, "type") == "checkbox" }
	if isBox(n) {
		return n
	}
	if n.Data != "label" {
		return nil
	}
	boxes, _ := QueryAll(n, `input[type="checkbox"]`)
	if len(boxes) == 0 {
		return nil
	}
	return boxes[0]
}

func (f *FakeForm) URL(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url, nil
}

var (
	_ ui.Page      = (*FakeForm)(nil)
	_ ui.Navigator = (*FakeForm)(nil)
)
