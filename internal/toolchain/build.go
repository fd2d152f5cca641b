package toolchain

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/iley/lispc/internal/asm"
	"github.com/iley/lispc/internal/ast"
	"github.com/iley/lispc/internal/runtime"
	"github.com/iley/lispc/internal/writer"
)

// Build compiles nodes into an executable at output. The program's main
// prints the value of every node in order.
func Build(nodes []ast.Node, output string, cfg Config) error {
	if err := CheckHost(); err != nil {
		return err
	}

	program, err := writer.Build(nodes, writer.Options{Main: true, Trace: cfg.Trace})
	if err != nil {
		return err
	}
	missing, err := runtime.Missing(program.Externs)
	if err != nil {
		return fmt.Errorf("could not scan runtime: %w", err)
	}
	if len(missing) > 0 {
		return fmt.Errorf("runtime does not define %s", strings.Join(missing, ", "))
	}

	dir := cfg.WorkDir
	if dir == "" {
		dir, err = os.MkdirTemp("", "lispc-")
		if err != nil {
			return fmt.Errorf("failed to create work directory: %w", err)
		}
		if !cfg.Keep {
			defer os.RemoveAll(dir)
		}
	}

	baseName := strings.TrimSuffix(filepath.Base(output), filepath.Ext(output))
	asmFile := filepath.Join(dir, baseName+".asm")
	objFile := filepath.Join(dir, baseName+".o")

	if err := writeProgram(asmFile, program); err != nil {
		return err
	}
	runtimeFile, err := runtime.Install(dir)
	if err != nil {
		return err
	}
	if !cfg.Keep && cfg.WorkDir != "" {
		defer func() {
			os.Remove(asmFile)
			os.Remove(objFile)
			os.Remove(runtimeFile)
		}()
	}

	asArgs := append(append([]string{}, cfg.AssemblerFlags...), "-o", objFile, asmFile)
	if err := run(cfg, "assembly", cfg.Assembler, asArgs); err != nil {
		return err
	}

	ccArgs := append(append([]string{}, cfg.CCFlags...), "-o", output, objFile, runtimeFile, "-lm")
	if err := run(cfg, "linking", cfg.CC, ccArgs); err != nil {
		return err
	}
	return nil
}

// Run builds nodes into a temporary executable and runs it with its
// standard output connected to stdout.
func Run(nodes []ast.Node, stdout io.Writer, cfg Config) error {
	dir, err := os.MkdirTemp("", "lispc-run-")
	if err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(dir)

	binFile := filepath.Join(dir, "a.out")
	if err := Build(nodes, binFile, cfg); err != nil {
		return err
	}
	return Execute(binFile, stdout)
}

// Execute runs a built program. A non-zero exit status is returned as an
// error carrying the status.
func Execute(binFile string, stdout io.Writer) error {
	cmd := exec.Command(binFile)
	cmd.Stdout = stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return fmt.Errorf("%s: exit status %d", binFile, exitError.ExitCode())
		}
		return err
	}
	return nil
}

func writeProgram(path string, program asm.Program) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}
	asm.FormatProgram(f, program)
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func run(cfg Config, step, name string, args []string) error {
	if cfg.Trace != nil {
		fmt.Fprintf(cfg.Trace, "toolchain: %s %s\n", name, strings.Join(args, " "))
	}
	cmd := exec.Command(name, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s failed: %w\nOutput: %s", step, err, string(output))
	}
	return nil
}
