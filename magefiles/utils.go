//go:build mage

package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/magefile/mage/mg"
)

// tool is an external command run by the mage targets.
type tool struct {
	name string
	env  []string
	// quiet tools only print their output when they fail or mage runs verbose.
	quiet bool
}

var (
	goTool    = tool{name: "go"}
	glslcTool = tool{name: "glslc", quiet: true}
)

func (t tool) with(env ...string) tool {
	t.env = append(append([]string(nil), t.env...), env...)
	return t
}

func (t tool) run(args ...string) (string, error) {
	fmt.Printf("Executing: %s %s\n", t.name, strings.Join(args, " "))
	cmd := exec.Command(t.name, args...)
	if len(t.env) > 0 {
		cmd.Env = append(os.Environ(), t.env...)
	}

	stream := mg.Verbose() || !t.quiet
	var out bytes.Buffer
	if stream {
		cmd.Stdout = io.MultiWriter(&out, os.Stdout)
		cmd.Stderr = io.MultiWriter(&out, os.Stderr)
	} else {
		cmd.Stdout = &out
		cmd.Stderr = &out
	}
	if err := cmd.Run(); err != nil {
		if !stream {
			fmt.Println("... failed command output:")
			fmt.Println(out.String())
		}
		return "", fmt.Errorf("error executing %s: %w", t.name, err)
	}
	return out.String(), nil
}

func goTidy() error {
	if _, err := goTool.run("mod", "tidy"); err != nil {
		return fmt.Errorf("failed to run go mod tidy: %w", err)
	}
	return nil
}
