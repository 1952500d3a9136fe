package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arborq/arborq/internal/compile"
	"github.com/arborq/arborq/internal/queryfile"
	"github.com/arborq/arborq/internal/render"
	"github.com/arborq/arborq/internal/sqlir"
	"github.com/arborq/arborq/internal/typemap"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledQuery is one query's compilation result.
type CompiledQuery struct {
	Name   string `json:"name"`
	SQL    string `json:"sql"`
	Params []any  `json:"params,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <query-dir>",
		Short: "Compile query definitions to SQL",
		Long: `Compile CUE query definitions to parameterized PostgreSQL.

Each query's filter is lowered to ltree operators where its shape allows,
with a per-element scan as the general fallback.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

// newCompiler builds the compiler shared by the compile and explain
// commands, applying --type-map overrides when given. Type-map problems
// are fatal here, at startup, never during per-query translation.
func newCompiler(opts *RootOptions) (*compile.Compiler, error) {
	var overrides *typemap.Overrides
	if opts.TypeMap != "" {
		var err error
		overrides, err = typemap.LoadOverrides(opts.TypeMap)
		if err != nil {
			return nil, err
		}
	}
	resolver, err := typemap.New(overrides)
	if err != nil {
		return nil, err
	}
	return compile.New(resolver), nil
}

// newLogger builds the diagnostic logger for a command invocation.
// Diagnostics go to stderr so JSON output stays parseable.
func newLogger(opts *RootOptions, formatter *OutputFormatter) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(formatter.GetErrWriter(), &slog.HandlerOptions{Level: level}))
}

func runCompile(opts *CompileOptions, queryDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := newLogger(opts.RootOptions, formatter)

	compiler, err := newCompiler(opts.RootOptions)
	if err != nil {
		if outErr := formatter.Error(ErrCodeConfig, err.Error(), nil); outErr != nil {
			return outErr
		}
		return &ExitError{Code: ExitCommandError, Message: "configuration invalid", Err: err}
	}

	result, err := queryfile.Load(queryDir)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	logger.Debug("loaded query definitions", "trace_id", formatter.traceID(), "files", result.FileCount, "queries", len(result.Queries))

	compiled := make([]CompiledQuery, 0, len(result.Queries))
	for _, q := range result.Queries {
		cq, err := compileQuery(compiler, q)
		if err != nil {
			if outErr := formatter.Error(ErrCodeCompile, fmt.Sprintf("query %q: %v", q.Name, err), nil); outErr != nil {
				return outErr
			}
			return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("query %q failed to compile", q.Name), Err: err}
		}
		logger.Debug("compiled query", "trace_id", formatter.TraceID, "query", q.Name)
		compiled = append(compiled, cq)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(renderText(compiled)), 0o644); err != nil {
			return &ExitError{Code: ExitCommandError, Message: "write output", Err: err}
		}
		return formatter.Success(fmt.Sprintf("compiled %d queries to %s", len(compiled), opts.Output))
	}

	if opts.Format == "json" {
		return formatter.Success(compiled)
	}
	fmt.Fprint(formatter.Writer, renderText(compiled))
	return nil
}

func compileQuery(compiler *compile.Compiler, q queryfile.Query) (CompiledQuery, error) {
	var node sqlir.Node
	if q.Filter != nil {
		var err error
		node, err = compiler.Compile(q.Filter)
		if err != nil {
			return CompiledQuery{}, err
		}
	}
	sql, params, err := render.Statement(q.Table, q.Select, node)
	if err != nil {
		return CompiledQuery{}, err
	}
	return CompiledQuery{Name: q.Name, SQL: sql, Params: params}, nil
}

func renderText(compiled []CompiledQuery) string {
	var sb strings.Builder
	for _, cq := range compiled {
		fmt.Fprintf(&sb, "-- %s\n%s;\n", cq.Name, cq.SQL)
		if len(cq.Params) > 0 {
			fmt.Fprintf(&sb, "-- params: %v\n", cq.Params)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// outputLoadError reports a query-file load failure with its code.
func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *queryfile.LoadError
	if errors.As(err, &loadErr) {
		if outErr := formatter.Error(loadErr.Code, loadErr.Message, nil); outErr != nil {
			return outErr
		}
		code := ExitFailure
		if loadErr.Code == queryfile.ErrCodeNotFound || loadErr.Code == queryfile.ErrCodeNoFiles {
			code = ExitCommandError
		}
		return &ExitError{Code: code, Message: "load failed", Err: err}
	}
	if outErr := formatter.Error(ErrCodeLoad, err.Error(), nil); outErr != nil {
		return outErr
	}
	return &ExitError{Code: ExitFailure, Message: "load failed", Err: err}
}
