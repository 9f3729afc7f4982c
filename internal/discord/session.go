package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"oncebutler/internal/roles"
)

// Session is the subset of *discordgo.Session the adapter calls.
type Session interface {
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMembers(guildID, after string, limit int, options ...discordgo.RequestOption) ([]*discordgo.Member, error)
	GuildMemberEdit(guildID, userID string, data *discordgo.GuildMemberParams, options ...discordgo.RequestOption) (*discordgo.Member, error)
}

var _ Session = (*discordgo.Session)(nil)

// Connect builds a REST session for a bot token and returns it with the
// bot's user ID.
func Connect(ctx context.Context, token string) (*discordgo.Session, string, error) {
	if token == "" {
		return nil, "", fmt.Errorf("discord token is required")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, "", fmt.Errorf("creating discord session: %w", err)
	}
	me, err := s.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return nil, "", fmt.Errorf("fetching bot user: %w", classify(err))
	}
	return s, me.ID, nil
}

// classify maps REST failures onto the engine's error kinds.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) {
		if rest.Message != nil {
			switch rest.Message.Code {
			case discordgo.ErrCodeUnknownGuild, discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownRole:
				return fmt.Errorf("%w: %v", roles.ErrNotFound, err)
			case discordgo.ErrCodeMissingAccess, discordgo.ErrCodeMissingPermissions:
				return fmt.Errorf("%w: %v", roles.ErrPermissionDenied, err)
			}
		}
		if rest.Response != nil {
			switch rest.Response.StatusCode {
			case http.StatusNotFound:
				return fmt.Errorf("%w: %v", roles.ErrNotFound, err)
			case http.StatusForbidden:
				return fmt.Errorf("%w: %v", roles.ErrPermissionDenied, err)
			}
		}
	}
	return fmt.Errorf("%w: %v", roles.ErrTransport, err)
}
