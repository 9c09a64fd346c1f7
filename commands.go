//go:build !js

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"semby/pkg/asm"
	"semby/pkg/config"
	"semby/pkg/utils"
	"semby/pkg/vm"
)

// delegatePath is where `run --runtime` leaves the bytecode for the external interpreter.
var delegatePath = filepath.Join(os.TempDir(), "semby-run.smbc")

type globalFlags struct {
	configPath   string
	logLevel     string
	strictJumps  bool
	sourceMap    bool
	strictSyntax bool
	memory       int
	trace        bool
	traceDir     string
}

type app struct {
	flags    globalFlags
	cfg      config.Config
	exitCode int
}

func newApp() *app {
	return &app{cfg: config.Default()}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "semby",
		Short: "Assembler and interpreter for the semby stack machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.before(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "Path of a TOML config file")
	pf.StringVar(&a.flags.logLevel, "log-level", "warn", "Log messages above specified level: debug, info, warn, error")
	pf.BoolVar(&a.flags.strictJumps, "strict-jumps", true, "Reject labels declared more than once")
	pf.BoolVar(&a.flags.sourceMap, "source-map", false, "Embed source locations for error reports")
	pf.BoolVar(&a.flags.strictSyntax, "strict-syntax", false, "Reject lines that match no instruction")
	pf.IntVar(&a.flags.memory, "memory", vm.DefaultMemorySize, "Number of memory cells")
	pf.BoolVar(&a.flags.trace, "trace", false, "Enable the trc instruction")
	pf.StringVar(&a.flags.traceDir, "trace-dir", ".", "Directory trace files are written to")

	root.AddCommand(
		newCompileCommand(a),
		newExecCommand(a),
		newRunCommand(a),
		newDisasmCommand(a),
	)
	return root
}

// before resolves the effective config: defaults, then the config file, then
// any flag set explicitly on the command line.
func (a *app) before(cmd *cobra.Command) error {
	level, err := logrus.ParseLevel(a.flags.logLevel)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", a.flags.logLevel)
	}
	logrus.SetLevel(level)

	if a.flags.configPath != "" {
		cfg, err := config.Load(a.flags.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}

	flags := cmd.Flags()
	if flags.Changed("strict-jumps") {
		a.cfg.Assembler.StrictJumps = a.flags.strictJumps
	}
	if flags.Changed("source-map") {
		a.cfg.Assembler.SourceMapped = a.flags.sourceMap
	}
	if flags.Changed("strict-syntax") {
		a.cfg.Assembler.StrictSyntax = a.flags.strictSyntax
	}
	if flags.Changed("memory") {
		a.cfg.Machine.MemorySize = a.flags.memory
	}
	if flags.Changed("trace") {
		a.cfg.Machine.Trace = a.flags.trace
	}
	if flags.Changed("trace-dir") {
		a.cfg.Machine.TraceDir = a.flags.traceDir
	}
	return a.cfg.Validate()
}

func (a *app) build(path string) ([]byte, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return asm.Build(string(src), path, a.cfg.AsmOptions())
}

func (a *app) execute(cmd *cobra.Command, code []byte) error {
	opts := a.cfg.VMOptions()
	opts.Stdout = cmd.OutOrStdout()
	opts.Stderr = cmd.ErrOrStderr()
	opts.Logger = logrus.StandardLogger()

	res, err := vm.Execute(code, opts)
	if err != nil {
		return err
	}
	a.exitCode = res.ExitCode
	return nil
}

func newCompileCommand(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "compile FILE",
		Short: "Assemble a source file into bytecode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := a.build(args[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = utils.DefaultOutputPath(args[0])
			}
			if err := os.WriteFile(out, code, 0o644); err != nil {
				return errors.Wrapf(err, "writing %s", out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Compilation done. Written %d bytes to %s\n", len(code), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output bytecode path (default: input with .smbc extension)")
	return cmd
}

func newExecCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exec FILE",
		Short: "Run a bytecode file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrapf(err, "reading %s", args[0])
			}
			return a.execute(cmd, code)
		},
	}
}

func newRunCommand(a *app) *cobra.Command {
	var runtime string
	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Assemble a source file and run it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := a.build(args[0])
			if err != nil {
				return err
			}
			if runtime != "" {
				return a.delegate(cmd, runtime, code)
			}
			return a.execute(cmd, code)
		},
	}
	cmd.Flags().StringVar(&runtime, "runtime", "", "Run the bytecode with this external interpreter instead")
	return cmd
}

// delegate hands the bytecode to an external interpreter through a fixed
// temporary file and adopts its exit status.
func (a *app) delegate(cmd *cobra.Command, runtime string, code []byte) error {
	if err := os.WriteFile(delegatePath, code, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", delegatePath)
	}
	logrus.Debugf("Delegating %s to %s", delegatePath, runtime)

	c := exec.Command(runtime, delegatePath)
	c.Stdin = os.Stdin
	c.Stdout = cmd.OutOrStdout()
	c.Stderr = cmd.ErrOrStderr()
	if err := c.Run(); err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			a.exitCode = ee.ExitCode()
			return nil
		}
		return errors.Wrapf(err, "running %s", runtime)
	}
	a.exitCode = 0
	return nil
}

func newDisasmCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "disasm FILE",
		Short: "Print the instructions of a bytecode file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrapf(err, "reading %s", args[0])
			}
			instrs, err := vm.Disassemble(code)
			for _, in := range instrs {
				fmt.Fprintln(cmd.OutOrStdout(), in)
			}
			return err
		},
	}
}
