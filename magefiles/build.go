//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/magefile/mage/mg"
	"github.com/spaghettifunk/vecsandbox/engine/systems"
)

const (
	assetsDir  = "assets"
	binaryName = "vecsandbox"
)

type Build mg.Namespace

// Compiles every GLSL stage under assets/shaders into SPIR-V next to it.
func (Build) Shaders() error {
	return buildShaders()
}

// Writes the procedural sandbox meshes into assets/meshes.
func (Build) Meshes() error {
	dir := filepath.Join(assetsDir, "meshes")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	geometry := systems.SandboxGeometry()
	names := make([]string, 0, len(geometry))
	for name := range geometry {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := geometry[name].EncodeBytes()
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", name, err)
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		fmt.Printf("Wrote %s (%d bytes)\n", path, len(data))
	}
	return nil
}

// Builds shaders, meshes and the sandbox binary.
func (Build) Sandbox() error {
	mg.Deps(Build.Shaders, Build.Meshes)
	if _, err := goTool.with("CGO_ENABLED=1").run("build", "-o", binaryName, "."); err != nil {
		return err
	}
	return nil
}

func buildShaders() error {
	var stages []string
	for _, pattern := range []string{"*.vert", "*.frag"} {
		matches, err := filepath.Glob(filepath.Join(assetsDir, "shaders", pattern))
		if err != nil {
			return err
		}
		stages = append(stages, matches...)
	}
	if len(stages) == 0 {
		return fmt.Errorf("no shader sources under %s", filepath.Join(assetsDir, "shaders"))
	}
	for _, src := range stages {
		if _, err := glslcTool.run(src, "-o", src+".spv"); err != nil {
			return err
		}
	}
	return nil
}
