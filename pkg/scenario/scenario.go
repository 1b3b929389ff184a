// Package scenario loads YAML scenario files that declare atoms, derived
// values, effects and a list of steps, and runs them against a universe.
//
// A scenario looks like:
//
//	name: cart
//	atoms:
//	  - name: cart
//	    value: {items: [], total: 0}
//	    devtools: true
//	derived:
//	  - name: total
//	    source: cart
//	    path: total
//	effects:
//	  - name: log-total
//	    source: total
//	history: [cart]
//	steps:
//	  - set: {atom: cart, path: total, value: 5}
//	  - transaction:
//	      - set: {atom: cart, path: total, value: 6}
//	      - set: {atom: cart, path: total, value: 7}
//	  - expect: {atom: total, value: 7}
//	  - undo: cart
//	  - expect: {atom: total, value: 5}
package scenario

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/reactor/internal/errors"
)

// Scenario is a parsed scenario file.
type Scenario struct {
	Name    string        `yaml:"name"`
	Atoms   []AtomSpec    `yaml:"atoms"`
	Derived []DerivedSpec `yaml:"derived"`
	Effects []EffectSpec  `yaml:"effects"`
	History []string      `yaml:"history"`
	Steps   []Step        `yaml:"steps"`
}

// AtomSpec declares an atom.
type AtomSpec struct {
	Name     string `yaml:"name"`
	Value    any    `yaml:"value"`
	Devtools bool   `yaml:"devtools"`
}

// DerivedSpec declares a derived value projecting Path of Source.
type DerivedSpec struct {
	Name     string `yaml:"name"`
	Source   string `yaml:"source"`
	Path     string `yaml:"path"`
	Devtools bool   `yaml:"devtools"`
}

// EffectSpec declares an effect logging Path of Source on every run.
type EffectSpec struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
	Path   string `yaml:"path"`
}

// Step is one action. Exactly one field is set.
type Step struct {
	Set         *SetStep    `yaml:"set,omitempty"`
	Transaction []Step      `yaml:"transaction,omitempty"`
	Expect      *ExpectStep `yaml:"expect,omitempty"`
	Undo        string      `yaml:"undo,omitempty"`
	Redo        string      `yaml:"redo,omitempty"`
}

// SetStep writes Value at Path of Atom. An empty path replaces the value.
type SetStep struct {
	Atom  string `yaml:"atom"`
	Path  string `yaml:"path"`
	Value any    `yaml:"value"`
}

// ExpectStep asserts that Path of Atom equals Value.
type ExpectStep struct {
	Atom  string `yaml:"atom"`
	Path  string `yaml:"path"`
	Value any    `yaml:"value"`
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.CodeScenarioParse).Wrap(err)
	}
	sc, err := Parse(data)
	if err != nil {
		if e, ok := err.(*errors.Error); ok && e.Detail == "" {
			e.WithDetail("in " + path)
		}
		return nil, err
	}
	if sc.Name == "" {
		sc.Name = path
	}
	return sc, nil
}

// Parse decodes and validates a scenario.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, errors.New(errors.CodeScenarioParse).Wrap(err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks names and references.
func (sc *Scenario) Validate() error {
	states := map[string]bool{}
	atoms := map[string]bool{}
	declare := func(kind, name string) error {
		if name == "" {
			return invalid("%s without a name", kind)
		}
		if states[name] {
			return invalid("duplicate name %q", name)
		}
		states[name] = true
		return nil
	}

	for _, a := range sc.Atoms {
		if err := declare("atom", a.Name); err != nil {
			return err
		}
		atoms[a.Name] = true
	}
	for _, d := range sc.Derived {
		if !states[d.Source] {
			return invalid("derived %q reads unknown source %q", d.Name, d.Source)
		}
		if err := declare("derived", d.Name); err != nil {
			return err
		}
	}
	for _, e := range sc.Effects {
		if e.Name == "" {
			return invalid("effect without a name")
		}
		if !states[e.Source] {
			return invalid("effect %q reads unknown source %q", e.Name, e.Source)
		}
	}
	tracked := map[string]bool{}
	for _, name := range sc.History {
		if !atoms[name] {
			return invalid("history of unknown atom %q", name)
		}
		tracked[name] = true
	}
	return validateSteps(sc.Steps, states, atoms, tracked)
}

func validateSteps(steps []Step, states, atoms, tracked map[string]bool) error {
	for i, st := range steps {
		n := 0
		if st.Set != nil {
			n++
			if !atoms[st.Set.Atom] {
				return invalid("step %d: set on unknown atom %q", i+1, st.Set.Atom)
			}
		}
		if st.Transaction != nil {
			n++
			if err := validateSteps(st.Transaction, states, atoms, tracked); err != nil {
				return err
			}
		}
		if st.Expect != nil {
			n++
			if !states[st.Expect.Atom] {
				return invalid("step %d: expect on unknown atom %q", i+1, st.Expect.Atom)
			}
		}
		for _, name := range []string{st.Undo, st.Redo} {
			if name == "" {
				continue
			}
			n++
			if !tracked[name] {
				return invalid("step %d: %q has no history", i+1, name)
			}
		}
		if n != 1 {
			return invalid("step %d: want exactly one action, got %d", i+1, n)
		}
	}
	return nil
}

func invalid(format string, args ...any) *errors.Error {
	return errors.New(errors.CodeScenarioParse).WithDetailf(format, args...)
}
