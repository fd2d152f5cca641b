// Command testrunner builds every tests/*.lisp program with lispc, runs it and
// compares its standard output with the matching .out file.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
)

type TestCase struct {
	Name         string
	SourceFile   string
	ExpectedFile string
}

// discoverTests returns the programs in testsDir that have expected output,
// sorted by name.
func discoverTests(testsDir string) ([]TestCase, error) {
	sources, err := filepath.Glob(filepath.Join(testsDir, "*.lisp"))
	if err != nil {
		return nil, err
	}

	var tests []TestCase
	for _, source := range sources {
		name := strings.TrimSuffix(filepath.Base(source), ".lisp")
		expected := filepath.Join(testsDir, name+".out")
		if _, err := os.Stat(expected); err != nil {
			continue
		}
		tests = append(tests, TestCase{Name: name, SourceFile: source, ExpectedFile: expected})
	}
	slices.SortFunc(tests, func(a, b TestCase) int { return strings.Compare(a.Name, b.Name) })
	return tests, nil
}

// findTestCase accepts a test name, a path such as tests/003_let.lisp, or
// the numeric prefix of a name.
func findTestCase(tests []TestCase, identifier string) (TestCase, error) {
	name := strings.TrimSuffix(filepath.Base(identifier), ".lisp")
	for _, test := range tests {
		if test.Name == name || strings.HasPrefix(test.Name, name+"_") {
			return test, nil
		}
	}
	return TestCase{}, fmt.Errorf("test not found: %s", identifier)
}

// runTestCase builds the program into workDir and runs it. The binary is kept
// on failure for inspection.
func runTestCase(testCase TestCase, workDir string) error {
	binFile := filepath.Join(workDir, testCase.Name)

	build := exec.Command("go", "run", "github.com/iley/lispc/cmd/lispc", "build", "-o", binFile, testCase.SourceFile)
	if output, err := build.CombinedOutput(); err != nil {
		return fmt.Errorf("compilation error: %w\nOutput: %s", err, string(output))
	}

	actual, err := exec.Command(binFile).Output()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return fmt.Errorf("runtime error: exit status %d", exitError.ExitCode())
		}
		return fmt.Errorf("runtime error: %w", err)
	}

	expected, err := os.ReadFile(testCase.ExpectedFile)
	if err != nil {
		return fmt.Errorf("error reading expected output: %w", err)
	}
	if string(actual) != string(expected) {
		return fmt.Errorf("output mismatch:\nExpected: %q\nActual:   %q\nBinary:   %s", expected, actual, binFile)
	}

	os.Remove(binFile)
	return nil
}

func main() {
	tests, err := discoverTests("tests")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error discovering tests: %v\n", err)
		os.Exit(1)
	}
	if len(tests) == 0 {
		fmt.Println("No tests found in tests/ directory")
		return
	}

	if len(os.Args) > 1 {
		testCase, err := findTestCase(tests, os.Args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		tests = []TestCase{testCase}
	}
	fmt.Printf("Running %d test(s)\n", len(tests))

	workDir, err := os.MkdirTemp("", "lispc-tests-")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	failed := 0
	for _, test := range tests {
		fmt.Printf("Running test %s... ", test.Name)
		if err := runTestCase(test, workDir); err != nil {
			fmt.Printf("FAIL - %v\n", err)
			failed++
			continue
		}
		fmt.Println("PASS")
	}

	if failed > 0 {
		fmt.Printf("Test Results: %d passed, %d failed (binaries left in %s)\n", len(tests)-failed, failed, workDir)
		os.Exit(1)
	}
	os.RemoveAll(workDir)
	fmt.Printf("Test Results: %d passed. All good!\n", len(tests))
}
