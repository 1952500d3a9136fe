package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arborq/arborq/internal/queryfile"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool     `json:"valid"`
	Files   int      `json:"files"`
	Queries []string `json:"queries,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <query-dir>",
		Short: "Validate query definitions without compiling",
		Long: `Validate CUE query definitions without generating SQL.

Performs syntax checking, schema validation, and filter-expression
decoding. Faster than compile for development feedback.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, queryDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	result, err := queryfile.Load(queryDir)
	if err != nil {
		var loadErr *queryfile.LoadError
		if errors.As(err, &loadErr) {
			if opts.Format == "json" {
				if outErr := formatter.Success(ValidationResult{Valid: false, Error: loadErr.Error()}); outErr != nil {
					return outErr
				}
			} else if outErr := formatter.Error(loadErr.Code, loadErr.Message, nil); outErr != nil {
				return outErr
			}
			return &ExitError{Code: ExitFailure, Message: "validation failed", Err: err}
		}
		return outputLoadError(formatter, err)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", result.FileCount, queryDir)

	names := make([]string, len(result.Queries))
	for i, q := range result.Queries {
		names[i] = q.Name
	}

	if opts.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Files: result.FileCount, Queries: names})
	}
	return formatter.Success(fmt.Sprintf("valid: %d queries in %d file(s)", len(names), result.FileCount))
}
