//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles the sample SPIR-V shaders used by the vulkan backend.
func (Build) Shaders() error {
	if _, err := executeCmd("glslc", withArgs("assets/shaders/triangle.vert", "-o", "assets/shaders/triangle.vert.spv"), withStream()); err != nil {
		return err
	}
	if _, err := executeCmd("glslc", withArgs("assets/shaders/triangle.frag", "-o", "assets/shaders/triangle.frag.spv"), withStream()); err != nil {
		return err
	}
	return nil
}

// Builds the engine binary.
func (Build) Engine() error {
	if _, err := executeCmd("go", withArgs("build", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the whole test suite.
func (Build) Test() error {
	if _, err := executeCmd("go", withArgs("test", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}
