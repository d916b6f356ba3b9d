package operator

import (
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/teranos/foundry/config"
	"github.com/teranos/foundry/errors"
)

// Registration is one registered operator implementation.
type Registration struct {
	Name    string
	Version string
	Kind    string
	Factory Factory

	semver *semver.Version
}

// Registry maps implementation names to registered operators. It is
// append-only for the life of the process and safe for concurrent use.
// Construct one explicitly and pass it by reference; there is no hidden
// process-global registry.
type Registry struct {
	mu        sync.RWMutex
	operators map[string]Registration
}

// NewRegistry creates an empty operator registry.
func NewRegistry() *Registry {
	return &Registry{
		operators: make(map[string]Registration),
	}
}

// Register adds an operator implementation under name.
// Fails with ErrDuplicateName if the name is taken, ErrInvalidKind if kind is
// not a known kind tag, ErrInvalidVersion if version does not parse as semver.
func (r *Registry) Register(name, version, kind string, factory Factory) error {
	if name == "" {
		return errors.New("operator name must not be empty")
	}
	if !config.ValidKind(kind) {
		return errors.Wrapf(ErrInvalidKind, "operator %q: kind %q", name, kind)
	}
	ver, err := semver.NewVersion(version)
	if err != nil {
		return errors.Wrapf(ErrInvalidVersion, "operator %q: version %q", name, version)
	}
	if factory == nil {
		return errors.Newf("operator %q: nil factory", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.operators[name]; exists {
		return errors.Wrapf(ErrDuplicateName, "operator %q", name)
	}

	r.operators[name] = Registration{
		Name:    name,
		Version: version,
		Kind:    kind,
		Factory: factory,
		semver:  ver,
	}
	return nil
}

// Resolve looks up a registered operator by implementation name.
func (r *Registry) Resolve(name string) (Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.operators[name]
	if !ok {
		return Registration{}, errors.Wrapf(ErrUnknownOperator, "operator %q", name)
	}
	return reg, nil
}

// Names returns all registered implementation names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.operators))
	for name := range r.operators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every registration sorted by name.
func (r *Registry) All() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	regs := make([]Registration, 0, len(r.operators))
	for _, reg := range r.operators {
		regs = append(regs, reg)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].Name < regs[j].Name })
	return regs
}

// Len returns the number of registered operators.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.operators)
}

// checkConstraint validates a pipeline's version constraint against the
// registered implementation version.
func (reg Registration) checkConstraint(constraint string) error {
	if constraint == "" {
		return nil
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return errors.Wrapf(ErrInvalidVersion, "constraint %q", constraint)
	}
	if !c.Check(reg.semver) {
		return errors.Wrapf(ErrVersionConflict,
			"operator %q: pipeline requires %s, registered version is %s",
			reg.Name, constraint, reg.Version)
	}
	return nil
}
