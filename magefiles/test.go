//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs the unit tests with the race detector.
func (Test) Unit() error {
	_, err := executeCmd("go", withArgs("test", "-race", "-count=1", "./..."), withStream())
	return err
}

// Runs the deformation pipeline tests only.
func (Test) Deform() error {
	_, err := executeCmd("go", withArgs("test", "-race", "-count=1", "./deform/...", "./systems/..."), withDir("engine"), withStream())
	return err
}
