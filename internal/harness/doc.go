// Package harness runs declarative form-validation scenarios.
//
// A scenario drives a form through an ordered list of actions, then checks
// the state each named field settled in. Every expectation becomes an
// independent check, so one broken field never hides failures on others.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: clear_email
//	description: "Clearing a valid email shows the required message"
//	steps:
//	  - field: email
//	    action: fill            # value defaults to the field's canonical value
//	  - action: defocus
//	    field: email
//	    capture: first          # remember the settled snapshot
//	  - field: email
//	    action: clear
//	  - action: defocus
//	expect:
//	  - field: email
//	    state: invalid          # pristine | valid | invalid
//	    value: ""
//	    where: border == "rgb(236, 39, 43)"
//	    known_defect:
//	      id: sticky-success
//	      observed: successVisible && !errorVisible
//	skip: [location]
//	form:
//	  submit_enabled: false
//	  stays_on_form: true
//
// The action vocabulary is fill, clear, defocus and submit, plus toggle for
// a named control such as the newsletter checkbox. Composite behavior is an
// ordered sequence of these. State "expected" asks for whatever state the
// steps lead to under the registry's flags.
//
// # Outcomes
//
// Run returns an error and no report for configuration errors (unknown
// field, invalid action, error_visible or an errorVisible expression on a
// field with no error indicator) and for cancellation. Everything else is a check result:
//
//   - assertion: the field was read but never matched the expectation
//   - timeout: the field could not be read within the wait bound
//   - indicator_not_found: the indicator traversal found no status icon
//
// # Deterministic Testing
//
// Tests pair a Runner with testutil.FakeForm, a step clock so waits never
// sleep, and a fixed run id generator, which makes reports byte-identical
// across runs for golden file comparison.
package harness
