package field

import "github.com/roach88/formcheck/internal/ui"

// Ids of the signup form fields.
const (
	FirstName ID = "firstName"
	LastName  ID = "lastName"
	Email     ID = "email"
	Password  ID = "password"
	Location  ID = "location"
	WhatsApp  ID = "whatsApp"
)

// SignupOptions tunes the documented assumptions of the signup registry.
type SignupOptions struct {
	// LastNameRequired is the disputed required-ness of the surname field.
	// Scenario variants disagree on it; the default treats it as required.
	LastNameRequired bool
}

// DefaultSignupOptions returns the documented defaults.
func DefaultSignupOptions() SignupOptions {
	return SignupOptions{LastNameRequired: true}
}

// Signup returns the frozen registry for the account-registration form.
func Signup(opts SignupOptions) *Registry {
	text := func(id ID, label, css, message, valid string) Descriptor {
		return Descriptor{
			ID:              id,
			Label:           label,
			Kind:            KindText,
			Input:           ui.ByCSS(css),
			Success:         SuccessRelation(),
			Error:           ErrorRelation(),
			RequiredMessage: ui.ByText(message),
			ValidValue:      valid,
			Flags:           Flags{HasErrorIndicator: true, IsRequired: true},
		}
	}

	lastName := text(LastName, "Last name", "#sign-up-form-last-name", "Last name is required.", "Kucing")
	lastName.Flags.IsRequired = opts.LastNameRequired

	location := text(Location, "Location", "#location", "Your location is required.", "Kab. Morowali, Sulawesi Tengah")
	location.Kind = KindSelect
	location.Flags.HasErrorIndicator = false

	r := NewRegistry().MustRegister(
		text(FirstName, "First name", "#sign-up-form-first-name", "First name is required.", "Sayang"),
		lastName,
		text(Email, "Email", "#sign-up-form-email", "Email is required.", "sayangkucing@example.com"),
		text(Password, "Password", "#sign-up-form-password", "Password is required", "StrongPassw0rd!"),
		location,
		text(WhatsApp, "WhatsApp number", `input[aria-label="WhatsApp Number"]`, "WhatsApp number is required.", "81234567890"),
	)
	return r.MustSetControls(Controls{
		Submit:     ui.ByCSS(`button[type="submit"]`),
		BusyLabel:  "Please wait...",
		Newsletter: ui.ByText("Yes, fill me in on the latest"),
	}).Freeze()
}
