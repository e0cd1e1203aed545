package rhi

import "github.com/TQwan/SpartanEngine/engine/core"

// Object is the common base of RHI resources: a stable id for diagnostics
// plus a human readable name.
type Object struct {
	ID   string
	Name string
}

func NewObject(name string) Object {
	return Object{
		ID:   core.GenerateID(),
		Name: name,
	}
}
