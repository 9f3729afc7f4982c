package sqlite

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RunSQL executes an ad-hoc query. Positional parameters are passed as
// "1", "2", ... keys in params. Timestamp columns (stored as epoch
// milliseconds) come back as RFC3339 strings so output matches postgres.
func (c *Client) RunSQL(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	args := make([]any, 0, len(params))
	for i := 1; i <= len(params); i++ {
		val, ok := params[strconv.Itoa(i)]
		if !ok {
			return nil, fmt.Errorf("missing positional param %d", i)
		}
		args = append(args, val)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("running sql: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	results := make([]map[string]any, 0)
	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = columnValue(col, values[i])
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sql rows: %w", err)
	}
	return results, nil
}

func columnValue(col string, v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case int64:
		if isTimestampColumn(col) {
			return time.UnixMilli(val).UTC().Format(time.RFC3339)
		}
	}
	return v
}

func isTimestampColumn(col string) bool {
	col = strings.ToLower(col)
	return strings.HasSuffix(col, "_at") || col == "last_role_update"
}
