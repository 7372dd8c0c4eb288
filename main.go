package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	str "strings"
	"syscall"

	"github.com/davecgh/go-spew/spew"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// build-time

var BuildVersion string = "dev"
var BuildDate string

// runOptions is everything a single run needs once flags and config are merged.
type runOptions struct {
	compile bool
	display string
	format  string
	query   string
	ast     bool
	config  Config
}

// checkFileName applies the extension gate: the text after the first dot
// of the base name must be the source extension.
func checkFileName(path string) error {
	parts := str.Split(filepath.Base(path), ".")
	if len(parts) < 2 || parts[1] != sourceExtension {
		return &fileNameError{name: path}
	}
	return nil
}

// buildRunOptions lays the command line over the config file settings.
func buildRunOptions(flags *pflag.FlagSet, cfg Config) (runOptions, error) {
	opts := runOptions{config: cfg, display: cfg.Display, format: cfg.Format, query: cfg.Query}

	opts.compile, _ = flags.GetBool("compile")
	opts.ast, _ = flags.GetBool("ast")
	if display, _ := flags.GetBool("display"); display {
		opts.display = displayUser
	}
	if full, _ := flags.GetBool("full"); full && opts.display != displayNone {
		opts.display = displayFull
	}
	if flags.Changed("format") {
		opts.format, _ = flags.GetString("format")
	}
	if flags.Changed("query") {
		opts.query, _ = flags.GetString("query")
	}

	check := opts.config
	check.Display, check.Format, check.Query = opts.display, opts.format, opts.query
	if err := check.Validate(); err != nil {
		return opts, &configError{err: err}
	}
	return opts, nil
}

// runFile lexes, parses and evaluates one source file, then prints whatever
// output was asked for.
func runFile(fs afero.Fs, stdout io.Writer, path string, opts runOptions) error {

	glog.V(1).Infof("running %s", path)

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}

	nodes, err := ParseSource(string(data))
	if err != nil {
		return err
	}

	if opts.ast {
		spew.Fdump(stdout, nodes)
	}

	if opts.compile {
		fmt.Fprintln(stdout, "Compilation coming soon.")
		return nil
	}

	in := NewInterpreter(nodes,
		WithStdout(stdout),
		WithFs(fs),
		WithMaxImportDepth(opts.config.MaxImportDepth),
		WithSourcePath(path),
	)
	if err := in.Evaluate(); err != nil {
		return err
	}
	glog.V(1).Infof("finished %s with %d binding(s)", path, len(in.Env().Names()))

	full := opts.display == displayFull
	switch {
	case opts.query != "":
		return queryEnvironment(stdout, in.Env(), full, opts.query)
	case opts.format == formatJSON:
		return writeJSON(stdout, in.Env(), full)
	case opts.format == formatYAML:
		return writeYAML(stdout, in.Env(), full)
	case opts.display != displayNone:
		displayEnvironment(stdout, in.Env(), full)
	}
	return nil
}

// NewEplCmd creates the epl command, reading sources through fs.
func NewEplCmd(fs afero.Fs, stdout io.Writer) *cobra.Command {
	var interpret, compile, watch bool
	var configPath string
	var logToStderr bool
	var verbose int
	var cfg Config

	cmd := &cobra.Command{
		Use:   "epl [-i|-c] <file.epl> [-d|-fd]",
		Short: "epl runs programs written in the epl scripting language",
		Args:  cobra.ExactArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = loadConfig(fs, configPath); err != nil {
				return &configError{err: err}
			}
			flags := cmd.Flags()
			if flags.Changed("logtostderr") {
				cfg.LogToStderr = logToStderr
			}
			if flags.Changed("verbose") {
				cfg.Verbose = verbose
			}
			InitLogging(cfg.LogToStderr, cfg.Verbose)
			setColorMode(cfg.Color)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			glog.Flush()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if err := checkFileName(path); err != nil {
				return err
			}
			if interpret && compile {
				return &configError{err: errors.New("--interpret and --compile are mutually exclusive")}
			}
			opts, err := buildRunOptions(cmd.Flags(), cfg)
			if err != nil {
				return err
			}

			if !watch {
				return runFile(fs, stdout, path, opts)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watchAndRun(ctx, path,
				func() error { return runFile(fs, stdout, path, opts) },
				func(err error) { reportError(os.Stderr, err) })
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.Flags().BoolVarP(&interpret, "interpret", "i", false, "Interpret the program (the default)")
	cmd.Flags().BoolVarP(&compile, "compile", "c", false, "Compile the program (not available yet)")
	cmd.Flags().BoolP("display", "d", false, "Print the top level bindings after the run")
	cmd.Flags().BoolP("full", "f", false, "Include builtins in the printed bindings")
	cmd.Flags().String("format", formatText, "Output format for the bindings: text, json or yaml")
	cmd.Flags().String("query", "", "jq filter applied to the bindings as JSON")
	cmd.Flags().Bool("ast", false, "Dump the parsed syntax tree before running")
	cmd.Flags().BoolVar(&watch, "watch", false, "Run again every time the file changes")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $EPL_CONFIG or ./epl.yaml)")
	cmd.PersistentFlags().BoolVar(&logToStderr, "logtostderr", false, "Log to stderr instead of to files")
	cmd.PersistentFlags().IntVarP(
		&verbose, "verbose", "v", 0, "Enable verbose logging (e.g., v=3); anything >3 is very verbose")

	cmd.AddCommand(newBuiltinsCmd(stdout))
	cmd.AddCommand(newVersionCmd(stdout))

	return cmd
}

func newBuiltinsCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "builtins",
		Short: "List the builtin functions",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			showBuiltins(stdout, terminalWidth())
		},
	}
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the epl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "epl %s", BuildVersion)
			if BuildDate != "" {
				fmt.Fprintf(stdout, " (%s)", BuildDate)
			}
			fmt.Fprintln(stdout)
		},
	}
}

func main() {
	err := NewEplCmd(afero.NewOsFs(), os.Stdout).Execute()
	code := reportError(os.Stderr, err)
	glog.Flush()
	os.Exit(code)
}
