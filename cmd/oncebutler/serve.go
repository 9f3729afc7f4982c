package main

import (
	"context"

	"github.com/spf13/cobra"

	"oncebutler/internal/mcp"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP admin server over stdio",
		RunE:  runServe,
	}
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	catalogs, opts, err := loadCatalogs(cfg)
	if err != nil {
		return err
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	server := mcp.NewServer(catalogs, db, opts, version)
	return server.Run(ctx, &sdk.StdioTransport{})
}
