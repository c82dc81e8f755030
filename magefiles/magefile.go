// Package main provides build targets for the mediums project using Mage.
//
// Usage:
//
//	mage build        Compile mediumctl to bin/
//	mage test         Run all tests
//	mage testRace     Run all tests with the race detector
//	mage conformance  Run only the medium conformance suites
//	mage lint         Run golangci-lint
//	mage clean        Remove build artifacts
//	mage install      Install mediumctl to GOPATH/bin
//	mage stats        Print Go lines of code per package
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "mediumctl"
	binaryDir  = "bin"
	cmdDir     = "./cmd/mediumctl"
	modulePath = "github.com/mesh-intelligence/mediums"
)

// Build compiles the mediumctl binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Test runs all tests.
func Test() error {
	return sh.RunV(binGo, "test", "./...")
}

// TestRace runs all tests with the race detector.
func TestRace() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Conformance runs the shared conformance suite against every medium.
func Conformance() error {
	return sh.RunV(binGo, "test", "-run", "Conformance", "./pkg/...", "./internal/...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}

// Stats prints production and test lines of Go code per package directory.
func Stats() error {
	type counts struct{ prod, test int }
	perDir := map[string]*counts{}

	err := filepath.Walk(".", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			// Skip build output, VCS data and underscore-prefixed trees.
			if path == ".git" || path == binaryDir || path == "magefiles" || strings.HasPrefix(info.Name(), "_") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		n, countErr := countLines(path)
		if countErr != nil {
			return nil
		}
		dir := filepath.Dir(path)
		c, ok := perDir[dir]
		if !ok {
			c = &counts{}
			perDir[dir] = c
		}
		if strings.HasSuffix(path, "_test.go") {
			c.test += n
		} else {
			c.prod += n
		}
		return nil
	})
	if err != nil {
		return err
	}

	dirs := make([]string, 0, len(perDir))
	for d := range perDir {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	var prod, test int
	for _, d := range dirs {
		c := perDir[d]
		fmt.Printf("%-40s %6d prod %6d test\n", modulePath+"/"+filepath.ToSlash(d), c.prod, c.test)
		prod += c.prod
		test += c.test
	}
	fmt.Printf("%-40s %6d prod %6d test\n", "total", prod, test)
	return nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}
