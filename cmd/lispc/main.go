package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iley/lispc/internal/ast"
	"github.com/iley/lispc/internal/emu"
	"github.com/iley/lispc/internal/parser"
	"github.com/iley/lispc/internal/toolchain"
	"github.com/iley/lispc/internal/writer"
)

var (
	trace      bool
	expression string
	outputFile string
	withMain   bool
	keep       bool
)

var rootCmd = &cobra.Command{
	Use:   "lispc",
	Short: "Compiler for a small Lisp-like expression language",
	Long:  "Compile Lisp-like expressions to x86-64 NASM assembly and native executables.",
}

var compileCmd = &cobra.Command{
	Use:   "compile <file.lisp>...",
	Short: "Compile to NASM assembly",
	Long:  "Compile every expression in the input to a global function f0, f1, ... in a NASM unit.",
	RunE: func(cmd *cobra.Command, args []string) error {
		nodes, err := readInput(args)
		if err != nil {
			return err
		}
		if len(args) != 1 && outputFile == "" {
			return fmt.Errorf("output file (-o) must be specified unless compiling a single file")
		}

		var output io.Writer
		if outputFile == "-" {
			output = cmd.OutOrStdout()
		} else {
			if outputFile == "" {
				outputFile = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".asm"
			}
			f, err := os.Create(outputFile)
			if err != nil {
				return fmt.Errorf("error creating output file: %w", err)
			}
			defer func() {
				if err := f.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "warning: failed to close output file: %v\n", err)
				}
			}()
			output = f
		}

		cmd.SilenceUsage = true
		return writer.Write(output, nodes, writer.Options{Main: withMain, Trace: loadConfig(cmd).Trace})
	},
}

var buildCmd = &cobra.Command{
	Use:   "build <file.lisp>...",
	Short: "Build a native executable",
	Long:  "Compile the input and link it with the runtime into an executable that prints the value of every expression.",
	RunE: func(cmd *cobra.Command, args []string) error {
		nodes, err := readInput(args)
		if err != nil {
			return err
		}
		binFile := outputFile
		if binFile == "" {
			if len(args) != 1 {
				return fmt.Errorf("output file (-o) must be specified unless building a single file")
			}
			binFile = strings.TrimSuffix(args[0], filepath.Ext(args[0]))
		}

		cmd.SilenceUsage = true
		if err := toolchain.Build(nodes, binFile, loadConfig(cmd)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Built %s\n", binFile)
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run <file.lisp>...",
	Short: "Build a native executable and run it",
	RunE: func(cmd *cobra.Command, args []string) error {
		nodes, err := readInput(args)
		if err != nil {
			return err
		}
		cmd.SilenceUsage = true
		return toolchain.Run(nodes, cmd.OutOrStdout(), loadConfig(cmd))
	},
}

var evalCmd = &cobra.Command{
	Use:   "eval <file.lisp>...",
	Short: "Evaluate the generated code on the built-in emulator",
	Long:  "Compile the input and execute it on the x86-64 emulator. No assembler or C compiler is needed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		nodes, err := readInput(args)
		if err != nil {
			return err
		}
		cmd.SilenceUsage = true
		program, err := writer.Build(nodes, writer.Options{Main: true, Trace: loadConfig(cmd).Trace})
		if err != nil {
			return err
		}
		m := emu.New(program, emu.Config{Output: cmd.OutOrStdout()})
		_, err = m.Call("main")
		return err
	},
}

var astCmd = &cobra.Command{
	Use:   "ast <file.lisp>...",
	Short: "Print the parsed expressions",
	RunE: func(cmd *cobra.Command, args []string) error {
		nodes, err := readInput(args)
		if err != nil {
			return err
		}
		printNodes(cmd.OutOrStdout(), nodes)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&trace, "trace", false, "trace stack bookkeeping and tool invocations to stderr")
	rootCmd.PersistentFlags().StringVarP(&expression, "expr", "e", "", "compile the given expression instead of reading files")

	compileCmd.Flags().StringVarP(&outputFile, "o", "o", "", "output file name (- for stdout)")
	compileCmd.Flags().BoolVar(&withMain, "main", false, "add a main function that displays every result")
	buildCmd.Flags().StringVarP(&outputFile, "o", "o", "", "output file name")
	buildCmd.Flags().BoolVarP(&keep, "keep", "k", false, "keep intermediate files (.asm, .o, runtime)")
	runCmd.Flags().BoolVarP(&keep, "keep", "k", false, "keep intermediate files (.asm, .o, runtime)")

	rootCmd.AddCommand(compileCmd, buildCmd, runCmd, evalCmd, astCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig applies command line flags on top of the environment.
func loadConfig(cmd *cobra.Command) toolchain.Config {
	cfg := toolchain.LoadConfig()
	if trace {
		cfg.Trace = os.Stderr
	}
	if cmd.Flags().Changed("keep") {
		cfg.Keep = keep
	}
	return cfg
}

// readInput parses the -e expression or every file named in args, in order.
func readInput(args []string) ([]ast.Node, error) {
	if expression != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("cannot combine -e with input files")
		}
		return parser.Parse(strings.NewReader(expression), "")
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("no input files")
	}

	var nodes []ast.Node
	for _, fileName := range args {
		f, err := os.Open(fileName)
		if err != nil {
			return nil, fmt.Errorf("error opening input file: %w", err)
		}
		parsed, err := parser.Parse(f, fileName)
		f.Close()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, parsed...)
	}
	return nodes, nil
}

func printNodes(out io.Writer, nodes []ast.Node) {
	for _, node := range nodes {
		fmt.Fprintln(out, node.String())
	}
}
