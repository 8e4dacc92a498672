//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Builds the assets and runs the sandbox in a window.
func (Run) Sandbox() error {
	mg.Deps(Build.Shaders, Build.Meshes)
	fmt.Println("Run sandbox...")
	if _, err := goTool.with("CGO_ENABLED=1").run("run", ".", "-config", "config/sandbox.toml"); err != nil {
		return err
	}
	return nil
}

// Builds the assets and runs the sandbox on the headless backend.
func (Run) Headless() error {
	mg.Deps(Build.Shaders, Build.Meshes)
	fmt.Println("Run sandbox (headless)...")
	if _, err := goTool.run("run", ".", "-config", "config/sandbox.toml", "-backend", "headless"); err != nil {
		return err
	}
	return nil
}

type Test mg.Namespace

// Runs every package test.
func (Test) All() error {
	if _, err := goTool.run("test", "./..."); err != nil {
		return err
	}
	return nil
}

// Tidies the module.
func Tidy() error {
	return goTidy()
}
