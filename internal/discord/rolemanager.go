package discord

import (
	"context"
	"fmt"
	"slices"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"oncebutler/internal/roles"
)

const memberPageSize = 1000

var (
	_ roles.RoleManager  = (*RoleManager)(nil)
	_ roles.MemberLister = (*RoleManager)(nil)
)

// RoleManager implements the engine's role port against the Discord REST API.
type RoleManager struct {
	session Session
	botID   string
	logger  *zap.Logger
}

func NewRoleManager(session Session, botID string, logger *zap.Logger) *RoleManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleManager{session: session, botID: botID, logger: logger}
}

func (r *RoleManager) guildRoles(ctx context.Context, guildID string) ([]*discordgo.Role, error) {
	guildRoles, err := r.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("listing roles of guild %s: %w", guildID, classify(err))
	}
	return guildRoles, nil
}

func (r *RoleManager) member(ctx context.Context, m roles.Member) (*discordgo.Member, error) {
	member, err := r.session.GuildMember(m.GuildID, m.UserID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetching member %s: %w", m.UserID, classify(err))
	}
	return member, nil
}

// MemberRoles returns the names of the member's roles.
func (r *RoleManager) MemberRoles(ctx context.Context, m roles.Member) ([]string, error) {
	member, err := r.member(ctx, m)
	if err != nil {
		return nil, err
	}
	guildRoles, err := r.guildRoles(ctx, m.GuildID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]string, len(guildRoles))
	for _, role := range guildRoles {
		byID[role.ID] = role.Name
	}
	names := make([]string, 0, len(member.Roles))
	for _, id := range member.Roles {
		if name, ok := byID[id]; ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// ResolveRole matches ref against role IDs first, then names.
func (r *RoleManager) ResolveRole(ctx context.Context, guildID, ref string) (*roles.RoleHandle, error) {
	guildRoles, err := r.guildRoles(ctx, guildID)
	if err != nil {
		return nil, err
	}
	for _, role := range guildRoles {
		if role.ID == ref {
			return handle(role), nil
		}
	}
	for _, role := range guildRoles {
		if role.Name == ref {
			return handle(role), nil
		}
	}
	return nil, nil
}

func handle(role *discordgo.Role) *roles.RoleHandle {
	return &roles.RoleHandle{ID: role.ID, Name: role.Name, Position: role.Position}
}

func (r *RoleManager) AddRoles(ctx context.Context, m roles.Member, handles []roles.RoleHandle) error {
	return r.editRoles(ctx, m, func(current []string) []string {
		for _, h := range handles {
			if !slices.Contains(current, h.ID) {
				current = append(current, h.ID)
			}
		}
		return current
	})
}

func (r *RoleManager) RemoveRoles(ctx context.Context, m roles.Member, handles []roles.RoleHandle) error {
	return r.editRoles(ctx, m, func(current []string) []string {
		return slices.DeleteFunc(current, func(id string) bool {
			return slices.ContainsFunc(handles, func(h roles.RoleHandle) bool { return h.ID == id })
		})
	})
}

// editRoles replaces the member's role list in a single request.
func (r *RoleManager) editRoles(ctx context.Context, m roles.Member, edit func([]string) []string) error {
	member, err := r.member(ctx, m)
	if err != nil {
		return err
	}
	updated := edit(slices.Clone(member.Roles))
	if slices.Equal(updated, member.Roles) {
		return nil
	}
	_, err = r.session.GuildMemberEdit(m.GuildID, m.UserID, &discordgo.GuildMemberParams{Roles: &updated}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("editing roles of member %s: %w", m.UserID, classify(err))
	}
	r.logger.Debug("edited member roles",
		zap.String("guild", m.GuildID),
		zap.String("user", m.UserID),
		zap.Int("roles", len(updated)),
	)
	return nil
}

// CanManage reports whether the bot holds Manage Roles and its highest role
// sits strictly above h. Integration-managed roles are never manageable.
func (r *RoleManager) CanManage(ctx context.Context, guildID string, h roles.RoleHandle) (bool, error) {
	guildRoles, err := r.guildRoles(ctx, guildID)
	if err != nil {
		return false, err
	}
	bot, err := r.member(ctx, roles.Member{GuildID: guildID, UserID: r.botID})
	if err != nil {
		return false, err
	}

	var target *discordgo.Role
	byID := make(map[string]*discordgo.Role, len(guildRoles))
	for _, role := range guildRoles {
		byID[role.ID] = role
		if role.ID == h.ID {
			target = role
		}
	}
	if target == nil || target.Managed {
		return false, nil
	}

	highest := -1
	var perms int64
	for _, id := range bot.Roles {
		role, ok := byID[id]
		if !ok {
			continue
		}
		perms |= role.Permissions
		if role.Position > highest {
			highest = role.Position
		}
	}
	// @everyone shares the guild ID and applies to every member.
	if everyone, ok := byID[guildID]; ok {
		perms |= everyone.Permissions
	}

	if perms&(discordgo.PermissionManageRoles|discordgo.PermissionAdministrator) == 0 {
		return false, nil
	}
	return highest > target.Position, nil
}

// GuildMembers pages through the guild's human members.
func (r *RoleManager) GuildMembers(ctx context.Context, guildID string) ([]roles.Member, error) {
	var members []roles.Member
	after := ""
	for {
		page, err := r.session.GuildMembers(guildID, after, memberPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("listing members of guild %s: %w", guildID, classify(err))
		}
		for _, m := range page {
			if m.User == nil {
				continue
			}
			after = m.User.ID
			if m.User.Bot {
				continue
			}
			members = append(members, roles.Member{GuildID: guildID, UserID: m.User.ID})
		}
		if len(page) < memberPageSize {
			return members, nil
		}
	}
}
