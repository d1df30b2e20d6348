//go:build mage

// Package main contains Mage build targets for litsearch.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "litsearch"
	cmdPkg  = "./cmd/litsearch"
)

// Default target when mage runs without arguments.
var Default = Build

// Build compiles the pure-Go binary into bin/.
func Build() error {
	return build(binName, "")
}

// BuildCGO compiles the binary against sqlite-vec (requires CGO).
func BuildCGO() error {
	return build(binName+"-vec", "sqlite_vec")
}

func build(name, tags string) error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, name)

	args := []string{"build", "-o", out}
	env := map[string]string{"CGO_ENABLED": "0"}
	if tags != "" {
		args = append(args, "-tags", tags)
		env["CGO_ENABLED"] = "1"
	}
	args = append(args, cmdPkg)

	if err := sh.RunWithV(env, "go", args...); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Lint runs go vet followed by golangci-lint when installed.
func Lint() error {
	if err := sh.RunV("go", "vet", "./..."); err != nil {
		return err
	}
	if _, err := sh.Output("which", "golangci-lint"); err != nil {
		fmt.Println("golangci-lint not found, skipping")
		return nil
	}
	return sh.RunV("golangci-lint", "run", "./...")
}

// Check runs Lint and Test.
func Check() {
	mg.SerialDeps(Lint, Test)
}

// Clean removes build output.
func Clean() error {
	return sh.Rm(binDir)
}
