package render

import (
	"fmt"
	"strings"

	"github.com/arborq/arborq/internal/sqlir"
)

// Statement renders a full SELECT for a query definition: the selected
// columns (all of them, when none are named), the source table, and the
// compiled filter as the WHERE clause. where may be nil.
func Statement(table string, columns []string, where sqlir.Node) (string, []any, error) {
	if table == "" {
		return "", nil, fmt.Errorf("empty table name")
	}

	selectClause := "*"
	if len(columns) > 0 {
		selectClause = strings.Join(columns, ", ")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", selectClause, table)

	var params []any
	if where != nil {
		whereSQL, whereParams, err := Render(where)
		if err != nil {
			return "", nil, fmt.Errorf("render filter: %w", err)
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(whereSQL)
		params = whereParams
	}
	return sb.String(), params, nil
}
