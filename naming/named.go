// Package naming provides the Named interface shared by all simulated
// elements.
package naming

import "strings"

// Named describes an object that has a name.
type Named interface {
	// Name returns the name of the object.
	Name() string
}

// NamedBase is a base implementation of Named.
type NamedBase struct {
	name string
}

func (b *NamedBase) Name() string {
	return b.name
}

// MakeNamedBase creates a new NamedBase
func MakeNamedBase(name string) NamedBase {
	return NamedBase{name: name}
}

// NameMustBeValid panics if the name is empty or carries surrounding
// whitespace. Names show up in traces and monitoring URLs, so they must be
// clean.
func NameMustBeValid(name string) {
	if name == "" {
		panic("name must not be empty")
	}

	if strings.TrimSpace(name) != name {
		panic("name must not have leading or trailing whitespace")
	}
}
