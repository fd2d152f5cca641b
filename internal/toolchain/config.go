// Package toolchain turns compiled programs into native executables by
// running the assembler and the C compiler over the generated unit and the
// embedded runtime.
package toolchain

import (
	"io"
	"os"
	"strings"

	"github.com/xyproto/env/v2"
)

// Config holds the external tools used to produce a native binary.
type Config struct {
	Assembler      string
	AssemblerFlags []string
	CC             string
	CCFlags        []string
	// Keep leaves the .asm, .o and runtime files next to the output.
	Keep bool
	// WorkDir holds intermediate files. A temporary directory is used when empty.
	WorkDir string
	Trace   io.Writer
}

func DefaultConfig() Config {
	return Config{
		Assembler:      "nasm",
		AssemblerFlags: []string{"-f", "elf64"},
		CC:             "cc",
		CCFlags:        []string{"-no-pie"},
	}
}

// LoadConfig returns the default configuration with overrides taken from
// LISPC_NASM, LISPC_NASMFLAGS, LISPC_CC, LISPC_CFLAGS, LISPC_KEEP,
// LISPC_WORKDIR and LISPC_TRACE.
func LoadConfig() Config {
	cfg := DefaultConfig()
	cfg.Assembler = env.Str("LISPC_NASM", cfg.Assembler)
	cfg.CC = env.Str("LISPC_CC", cfg.CC)
	if flags := env.Str("LISPC_NASMFLAGS"); flags != "" {
		cfg.AssemblerFlags = strings.Fields(flags)
	}
	if flags := env.Str("LISPC_CFLAGS"); flags != "" {
		cfg.CCFlags = strings.Fields(flags)
	}
	cfg.Keep = env.Bool("LISPC_KEEP")
	cfg.WorkDir = env.Str("LISPC_WORKDIR")
	if env.Bool("LISPC_TRACE") {
		cfg.Trace = os.Stderr
	}
	return cfg
}
