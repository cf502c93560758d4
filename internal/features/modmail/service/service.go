// Package service opens private staff tickets for members who react to the
// "Contact staff" message.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	apperrors "giveaway-bot/internal/common/errors"
	"giveaway-bot/internal/common/logger"
	"giveaway-bot/internal/common/metrics"
	"giveaway-bot/internal/features/giveaway/templates"
	"giveaway-bot/internal/platform/chat"
)

type Config struct {
	// ChannelID is the parent of ticket threads; empty disables modmail.
	ChannelID  string
	Emoji      string
	ModRoleIDs []string
}

type Service struct {
	platform chat.Platform
	metrics  *metrics.Collector
	cfg      Config
	log      zerolog.Logger
}

func NewService(platform chat.Platform, m *metrics.Collector, cfg Config) *Service {
	return &Service{
		platform: platform,
		metrics:  m,
		cfg:      cfg,
		log:      logger.Component("modmail"),
	}
}

// Post sends the message members react to and adds the first reaction.
func (s *Service) Post(ctx context.Context, channelID string) (*chat.Message, error) {
	if s.cfg.ChannelID == "" {
		return nil, apperrors.NewValidationError("modmail", "Modmail channel is not configured")
	}
	msg, err := s.platform.SendMessage(ctx, channelID, chat.Message{
		Embeds: []chat.Embed{templates.ContactStaff(s.cfg.Emoji)},
	})
	if err != nil {
		return nil, apperrors.NewChatAPIError("send modmail message", err)
	}
	if err := s.platform.AddReaction(ctx, channelID, msg.ID, s.cfg.Emoji); err != nil {
		return nil, apperrors.NewChatAPIError("add modmail reaction", err)
	}
	return msg, nil
}

// HandleReaction opens or reuses the member's ticket when r is on a
// "Contact staff" message, and reports whether it was.
func (s *Service) HandleReaction(ctx context.Context, r chat.Reaction) (bool, error) {
	bot := s.platform.BotUser()
	if s.cfg.ChannelID == "" || r.Emoji != s.cfg.Emoji || r.UserID == bot.ID {
		return false, nil
	}

	msg, err := s.platform.FetchMessage(ctx, r.ChannelID, r.MessageID)
	if errors.Is(err, chat.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to fetch reacted message: %w", err)
	}
	if msg.Author.ID != bot.ID || len(msg.Embeds) == 0 || msg.Embeds[0].Title != templates.ContactStaffTitle {
		return false, nil
	}

	// the reaction stays clickable for the next request
	if err := s.platform.RemoveReaction(ctx, r.ChannelID, r.MessageID, r.Emoji, r.UserID); err != nil {
		s.log.Warn().Err(err).Str("user_id", r.UserID).Msg("Failed to remove modmail reaction")
	}

	name := r.UserID
	if member, err := s.platform.ResolveMember(ctx, r.GuildID, r.UserID); err == nil {
		name = member.User.Username
	}

	ticket, err := s.platform.OpenTicket(ctx, chat.TicketRequest{
		ParentID: s.cfg.ChannelID,
		Name:     fmt.Sprintf("%s | %s", name, r.UserID),
		UserID:   r.UserID,
		Members:  []string{r.UserID},
		Message:  chat.Message{Content: templates.ModmailGreeting(r.UserID, s.cfg.ModRoleIDs)},
	})
	s.metrics.RecordTicket(err)
	if err != nil {
		return true, fmt.Errorf("failed to open modmail ticket: %w", err)
	}

	s.log.Info().
		Str("user_id", r.UserID).
		Str("thread_id", ticket.ThreadID).
		Bool("reused", ticket.Reused).
		Msg("Modmail ticket opened")
	return true, nil
}
