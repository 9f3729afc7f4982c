package mcp

import (
	"context"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"oncebutler/internal/roles"
	"oncebutler/internal/store"
)

// Querier is the read-only store surface exposed to MCP clients.
type Querier interface {
	GetMemberStats(ctx context.Context, guildID, userID string) (*store.MemberStats, error)
	ListRules(ctx context.Context, guildID string, enabledOnly bool) ([]store.CustomRoleRule, error)
	ListAssignments(ctx context.Context, guildID, userID string) ([]store.RoleAssignment, error)
}

type Server struct {
	catalogs roles.CatalogSource
	db       Querier
	opts     roles.SyncOptions
	now      func() time.Time
	mcp      *sdk.Server
}

func NewServer(catalogs roles.CatalogSource, db Querier, opts roles.SyncOptions, version string) *Server {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	s := &Server{
		catalogs: catalogs,
		db:       db,
		opts:     opts,
		now:      time.Now,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "oncebutler",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
