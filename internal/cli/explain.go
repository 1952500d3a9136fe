package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arborq/arborq/internal/queryfile"
	"github.com/arborq/arborq/internal/sqlir"
)

// QueryPlan describes how a query's filter was lowered.
type QueryPlan struct {
	Name      string   `json:"name"`
	Operators []string `json:"operators,omitempty"` // tree-path operator tags used
	Functions []string `json:"functions,omitempty"` // backend functions called
	Scans     int      `json:"scans"`               // per-element fallback scans
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain <query-dir>",
		Short: "Show translation decisions per query",
		Long: `Show, per query, which array-level operators the translator chose and
where it fell back to a per-element scan.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runExplain(opts *RootOptions, queryDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	compiler, err := newCompiler(opts)
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

	plans := make([]QueryPlan, 0, len(result.Queries))
	for _, q := range result.Queries {
		plan := QueryPlan{Name: q.Name}
		if q.Filter != nil {
			node, err := compiler.Compile(q.Filter)
			if err != nil {
				if outErr := formatter.Error(ErrCodeCompile, fmt.Sprintf("query %q: %v", q.Name, err), nil); outErr != nil {
					return outErr
				}
				return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("query %q failed to compile", q.Name), Err: err}
			}
			plan = inspect(q.Name, node)
		}
		plans = append(plans, plan)
	}

	if opts.Format == "json" {
		return formatter.Success(plans)
	}
	var sb strings.Builder
	for _, plan := range plans {
		fmt.Fprintf(&sb, "%s:\n", plan.Name)
		if len(plan.Operators) > 0 {
			fmt.Fprintf(&sb, "  operators: %s\n", strings.Join(plan.Operators, ", "))
		}
		if len(plan.Functions) > 0 {
			fmt.Fprintf(&sb, "  functions: %s\n", strings.Join(plan.Functions, ", "))
		}
		if plan.Scans > 0 {
			fmt.Fprintf(&sb, "  fallback scans: %d\n", plan.Scans)
		}
		if len(plan.Operators) == 0 && len(plan.Functions) == 0 && plan.Scans == 0 {
			sb.WriteString("  no tree-path operations\n")
		}
	}
	fmt.Fprint(formatter.Writer, sb.String())
	return nil
}

// inspect walks a compiled tree and summarizes the translation outcome.
func inspect(name string, node sqlir.Node) QueryPlan {
	plan := QueryPlan{Name: name}
	sqlir.Walk(node, func(n sqlir.Node) bool {
		switch e := n.(type) {
		case *sqlir.BinaryExpr:
			if isTreePathOp(e.Op) {
				plan.Operators = append(plan.Operators, e.Op.String())
			}
		case *sqlir.FunctionExpr:
			plan.Functions = append(plan.Functions, e.Name)
		case *sqlir.ScanExpr:
			plan.Scans++
		}
		return true
	})
	return plan
}

func isTreePathOp(op sqlir.Operator) bool {
	switch op {
	case sqlir.OpContains, sqlir.OpContainedBy, sqlir.OpMatches, sqlir.OpMatchesAny,
		sqlir.OpFirstAncestor, sqlir.OpFirstDescendant, sqlir.OpFirstMatches:
		return true
	}
	return false
}
