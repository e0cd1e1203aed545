// Package rhi is the render hardware interface: one backend-agnostic
// draw-state surface executed by two different backend programming models.
// An immediate-mode backend (opengl) applies state deltas directly against a
// persistent context; an explicit-object backend (vulkan) compiles the full
// state snapshot into an immutable pipeline object and binds it as a unit.
package rhi
