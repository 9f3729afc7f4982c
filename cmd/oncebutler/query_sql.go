package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func querySQLCmd() *cobra.Command {
	var paramPairs []string
	cmd := &cobra.Command{
		Use:   "sql <query>",
		Short: "Execute a raw SQL query against the store",
		Long:  "Parameters are positional: --param 1=g1 binds the first placeholder ($1 on postgres, ? on sqlite).",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParamPairs(paramPairs)
			if err != nil {
				return err
			}
			return runSQL(strings.Join(args, " "), params)
		},
	}
	cmd.Flags().StringArrayVar(&paramPairs, "param", nil, "Query parameter as key=value (repeatable)")
	return cmd
}

func runSQL(query string, params map[string]any) error {
	ctx := context.Background()

	db, err := openConfiguredDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	rows, err := db.RunSQL(ctx, query, params)
	if err != nil {
		return err
	}

	payload, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(payload))
	return nil
}

// parseParamPairs turns key=value flags into query parameters. Integer and
// float values are bound as numbers; quote a value ('42') to keep it a string.
func parseParamPairs(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid param %q: expected key=value", pair)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("invalid param %q: empty key", pair)
		}
		params[key] = paramValue(strings.TrimSpace(value))
	}
	return params, nil
}

func paramValue(raw string) any {
	if len(raw) >= 2 && raw[0] == '\'' && raw[len(raw)-1] == '\'' {
		return raw[1 : len(raw)-1]
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
