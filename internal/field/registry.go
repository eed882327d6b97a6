package field

// Registry maps field ids to descriptors.
//
// Ids are kept in registration order so that scenarios iterating over all
// fields produce reports in a reproducible order. The registry performs no
// UI interaction. After Freeze it is immutable and safe to share between
// concurrently running scenarios.
type Registry struct {
	order    []ID
	byID     map[ID]Descriptor
	controls Controls
	frozen   bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[ID]Descriptor)}
}

// Register adds a descriptor. It fails with *DuplicateFieldError if the id is
// already present, *DescriptorError if the descriptor is invalid, and
// ErrFrozen after Freeze.
func (r *Registry) Register(d Descriptor) error {
	if r.frozen {
		return ErrFrozen
	}
	if d.Kind == "" {
		d.Kind = KindText
	}
	if err := d.Validate(); err != nil {
		return err
	}
	if _, exists := r.byID[d.ID]; exists {
		return &DuplicateFieldError{ID: d.ID}
	}
	r.byID[d.ID] = d
	r.order = append(r.order, d.ID)
	return nil
}

// MustRegister is Register for static tables; it panics on error.
func (r *Registry) MustRegister(ds ...Descriptor) *Registry {
	for _, d := range ds {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
	return r
}

// SetControls records the form-level controls.
func (r *Registry) SetControls(c Controls) error {
	if r.frozen {
		return ErrFrozen
	}
	r.controls = c
	return nil
}

// MustSetControls is SetControls for static tables; it panics on error.
func (r *Registry) MustSetControls(c Controls) *Registry {
	if err := r.SetControls(c); err != nil {
		panic(err)
	}
	return r
}

// Freeze makes the registry immutable and returns it.
func (r *Registry) Freeze() *Registry {
	r.frozen = true
	return r
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	return r.frozen
}

// Get returns the descriptor for id or *UnknownFieldError.
func (r *Registry) Get(id ID) (Descriptor, error) {
	d, ok := r.byID[id]
	if !ok {
		return Descriptor{}, &UnknownFieldError{ID: id}
	}
	return d, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id ID) bool {
	_, ok := r.byID[id]
	return ok
}

// IDs returns the registered ids in registration order.
func (r *Registry) IDs() []ID {
	out := make([]ID, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered fields.
func (r *Registry) Len() int {
	return len(r.order)
}

// Controls returns the form-level controls.
func (r *Registry) Controls() Controls {
	return r.controls
}
