package locator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formcheck/internal/field"
	"github.com/roach88/formcheck/internal/testutil"
	"github.com/roach88/formcheck/internal/ui"
)

func signupField(t *testing.T, id field.ID) field.Descriptor {
	t.Helper()
	d, err := field.Signup(field.DefaultSignupOptions()).Get(id)
	require.NoError(t, err)
	return d
}

func fillAndBlur(t *testing.T, page *testutil.FakeForm, d field.Descriptor, value string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, page.Fill(ctx, d.Input, value))
	require.NoError(t, page.Blur(ctx))
}

func TestResolve_Locators(t *testing.T) {
	h := Resolve(signupField(t, field.Email))

	assert.Equal(t, field.Email, h.Field)
	assert.Equal(t, ui.ByCSS("#sign-up-form-email"), h.Input)
	assert.Equal(t, ui.ByText("Email is required."), h.Message)
	assert.Equal(t, `#sign-up-form-email >> .. >> .. >> svg[data-testid="icon-svg"][fill="#93BD49"]`, h.Success().String())

	errLoc, err := h.Error()
	require.NoError(t, err)
	assert.Equal(t, `svg[data-testid="icon-svg"][fill="#EC272B"]`, errLoc.Within)
	assert.Equal(t, 2, errLoc.Up)
	assert.Equal(t, "#sign-up-form-email >> .. >> ..", h.Wrapper().String())
}

func TestResolve_NoErrorIndicator(t *testing.T) {
	h := Resolve(signupField(t, field.Location))

	assert.False(t, h.HasError())
	_, err := h.Error()
	assert.ErrorIs(t, err, ErrNoErrorIndicator)

	err = h.CheckIndicator(context.Background(), testutil.NewFakeForm(), Error)
	assert.ErrorIs(t, err, ErrNoErrorIndicator)
}

func TestResolve_CustomDepth(t *testing.T) {
	d := signupField(t, field.Email)
	d.Success.Depth = 3
	h := Resolve(d)
	assert.Equal(t, 3, h.Success().Up)
}

func TestCheckIndicators_Found(t *testing.T) {
	page := testutil.NewFakeForm()
	d := signupField(t, field.Email)
	fillAndBlur(t, page, d, d.ValidValue)

	h := Resolve(d)
	assert.NoError(t, h.CheckIndicators(context.Background(), page))

	visible, err := page.Visible(context.Background(), h.Success())
	require.NoError(t, err)
	assert.True(t, visible)
}

func TestCheckIndicators_TraversalBroken(t *testing.T) {
	page := testutil.NewFakeForm(testutil.WithExtraNesting(1))
	d := signupField(t, field.Email)
	fillAndBlur(t, page, d, d.ValidValue)

	err := Resolve(d).CheckIndicator(context.Background(), page, Success)
	var notFound *IndicatorNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, field.Email, notFound.Field)
	assert.Contains(t, err.Error(), `svg[data-testid="icon-svg"]`)
}

func TestCheckIndicators_PristineHasNoMarker(t *testing.T) {
	page := testutil.NewFakeForm()
	err := Resolve(signupField(t, field.Email)).CheckIndicators(context.Background(), page)
	var notFound *IndicatorNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestCheckIndicators_MissingInput(t *testing.T) {
	d := signupField(t, field.Email)
	d.Input = ui.ByCSS("#nope")
	err := Resolve(d).CheckIndicators(context.Background(), testutil.NewFakeForm())
	assert.ErrorIs(t, err, ui.ErrNotFound)
}
