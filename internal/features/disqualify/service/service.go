// Package service grants the disqualified role for a limited time and takes
// it back once the time is up.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "giveaway-bot/internal/common/errors"
	"giveaway-bot/internal/common/logger"
	"giveaway-bot/internal/common/metrics"
	"giveaway-bot/internal/features/giveaway/models"
	"giveaway-bot/internal/features/giveaway/repository"
	"giveaway-bot/internal/features/giveaway/templates"
	"giveaway-bot/internal/platform/chat"
	"giveaway-bot/internal/utils/duration"
)

type Config struct {
	GuildID         string
	RoleID          string
	Interval        time.Duration
	LogChannelID    string
	ModLogChannelID string
	EntryEmoji      string
}

// GiveawayLookup tells whether a message is a giveaway announcement.
type GiveawayLookup interface {
	IsGiveawayMessage(ctx context.Context, messageID string) (bool, error)
}

type Service struct {
	repo      repository.DisqualificationRepository
	platform  chat.Platform
	giveaways GiveawayLookup
	metrics   *metrics.Collector
	cfg       Config
	now       func() time.Time
	log       zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewService(
	repo repository.DisqualificationRepository,
	platform chat.Platform,
	giveaways GiveawayLookup,
	m *metrics.Collector,
	cfg Config,
) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		repo:      repo,
		platform:  platform,
		giveaways: giveaways,
		metrics:   m,
		cfg:       cfg,
		now:       time.Now,
		log:       logger.Component("disqualify"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

type DisqualifyInput struct {
	GuildID      string
	MemberRef    string
	Duration     string
	Reason       string
	Silent       bool
	ModeratorTag string
}

type DisqualifyResult struct {
	Record *models.Disqualification
	Member *chat.Member
	// Overwritten is true when an existing disqualification was replaced.
	Overwritten bool
}

// Disqualify grants the role and stores when to take it back. A member that
// is already disqualified gets the new expiry instead of a second record.
func (s *Service) Disqualify(ctx context.Context, in DisqualifyInput) (*DisqualifyResult, error) {
	if s.cfg.RoleID == "" {
		return nil, apperrors.NewValidationError("role", "Disqualified role is not configured")
	}
	if strings.TrimSpace(in.MemberRef) == "" {
		return nil, apperrors.New(apperrors.ErrCodeMissingArgument, "Missing required argument: user")
	}
	seconds, err := duration.Parse(in.Duration)
	if err != nil {
		return nil, err
	}

	guildID := in.GuildID
	if guildID == "" {
		guildID = s.cfg.GuildID
	}
	member, err := s.platform.ResolveMember(ctx, guildID, in.MemberRef)
	if errors.Is(err, chat.ErrNotFound) {
		return nil, apperrors.New(apperrors.ErrCodeMemberNotFound,
			fmt.Sprintf("Cannot convert `%s` to server member", in.MemberRef))
	}
	if err != nil {
		return nil, apperrors.NewChatAPIError("resolve member", err)
	}

	if err := s.platform.AddRole(ctx, guildID, member.User.ID, s.cfg.RoleID); err != nil {
		if errors.Is(err, chat.ErrForbidden) {
			return nil, apperrors.NewForbiddenError("I need `Manage Roles` permission to disqualify members")
		}
		return nil, apperrors.NewChatAPIError("add disqualified role", err)
	}

	record := &models.Disqualification{
		ID:      member.User.ID,
		Ending:  s.now().Unix() + seconds,
		GuildID: guildID,
		Reason:  in.Reason,
	}
	result := &DisqualifyResult{Record: record, Member: member}

	err = s.repo.Insert(ctx, record)
	if errors.Is(err, repository.ErrDuplicateKey) {
		err = s.repo.Replace(ctx, record)
		result.Overwritten = true
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("store disqualification", err)
	}
	s.metrics.RecordDisqualified()

	s.log.Info().
		Str("member_id", record.ID).
		Int64("ending", record.Ending).
		Bool("overwritten", result.Overwritten).
		Msg("Member disqualified")

	if !in.Silent && s.cfg.ModLogChannelID != "" {
		message := fmt.Sprintf("%s has been disqualified until <t:%d> by **%s**.", member.Mention(), record.Ending, in.ModeratorTag)
		if in.Reason != "" {
			message += fmt.Sprintf("\n**Reason:\n%s**", in.Reason)
		}
		if _, err := s.platform.SendMessage(ctx, s.cfg.ModLogChannelID, chat.Message{Content: message}); err != nil {
			s.log.Warn().Err(err).Msg("Failed to post to mod log")
		}
	}
	return result, nil
}

// List returns the stored disqualifications, soonest expiry first.
func (s *Service) List(ctx context.Context) ([]*models.Disqualification, error) {
	records, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list disqualifications", err)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Ending < records[j].Ending })
	return records, nil
}

// Start polls for expired disqualifications every Interval.
func (s *Service) Start() {
	s.log.Info().Dur("interval", s.cfg.Interval).Msg("Starting disqualification timer")
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := s.ProcessExpired(s.ctx); err != nil {
					s.log.Error().Err(err).Msg("Error processing expired disqualifications")
				}
			case <-s.ctx.Done():
				return
			}
		}
	}()
}

func (s *Service) Stop() {
	s.cancel()
	s.wg.Wait()
	s.log.Info().Msg("Disqualification timer stopped")
}

// ProcessExpired takes the role back from every member whose
// disqualification has expired. The record is deleted even when removing the
// role fails, so a member who left the guild is not retried forever.
func (s *Service) ProcessExpired(ctx context.Context) (int, error) {
	records, err := s.repo.FindAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list disqualifications: %w", err)
	}

	now := s.now()
	reverted := 0
	for _, record := range records {
		if !record.Expired(now) {
			continue
		}
		s.revert(ctx, record)
		reverted++
	}
	return reverted, nil
}

func (s *Service) revert(ctx context.Context, record *models.Disqualification) {
	guildID := record.GuildID
	if guildID == "" {
		guildID = s.cfg.GuildID
	}
	mention := fmt.Sprintf("<@%s>", record.ID)

	roleErr := s.platform.RemoveRole(ctx, guildID, record.ID, s.cfg.RoleID)
	s.metrics.RecordDisqualificationReverted(roleErr)
	if roleErr != nil {
		s.log.Warn().Err(roleErr).Str("member_id", record.ID).Msg("Failed to remove disqualified role")
		s.post(ctx, chat.Message{Embeds: []chat.Embed{
			templates.Error(fmt.Sprintf("Failed to remove disqualification role from %s", mention), ""),
		}})
	}

	if err := s.repo.Delete(ctx, record.ID); err != nil && !errors.Is(err, repository.ErrDisqualificationNotFound) {
		s.log.Error().Err(err).Str("member_id", record.ID).Msg("Failed to delete disqualification")
		return
	}

	if roleErr == nil {
		s.log.Info().Str("member_id", record.ID).Msg("Disqualification removed")
		s.post(ctx, chat.Message{Content: fmt.Sprintf("User %s disqualification removed", mention)})
	}
}

// CheckReaction removes giveaway entries made by disqualified members and
// reports whether it did.
func (s *Service) CheckReaction(ctx context.Context, r chat.Reaction) (bool, error) {
	if s.cfg.RoleID == "" || r.Emoji != s.cfg.EntryEmoji || r.UserID == s.platform.BotUser().ID {
		return false, nil
	}

	roles := r.RoleIDs
	if roles == nil {
		var err error
		roles, err = s.platform.MemberRoles(ctx, r.GuildID, r.UserID)
		if errors.Is(err, chat.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to read member roles: %w", err)
		}
	}
	if !contains(roles, s.cfg.RoleID) {
		return false, nil
	}

	isGiveaway, err := s.giveaways.IsGiveawayMessage(ctx, r.MessageID)
	if err != nil {
		return false, fmt.Errorf("failed to look up giveaway: %w", err)
	}
	if !isGiveaway {
		return false, nil
	}

	if err := s.platform.RemoveReaction(ctx, r.ChannelID, r.MessageID, r.Emoji, r.UserID); err != nil {
		return false, fmt.Errorf("failed to remove reaction: %w", err)
	}

	link := models.Location{GuildID: r.GuildID, ChannelID: r.ChannelID, MessageID: r.MessageID}.JumpURL()
	s.post(ctx, chat.Message{Embeds: []chat.Embed{templates.ReactionRemoved(link, r.UserID)}})
	s.log.Info().Str("member_id", r.UserID).Str("message_id", r.MessageID).Msg("Removed entry of disqualified member")
	return true, nil
}

func (s *Service) post(ctx context.Context, msg chat.Message) {
	if s.cfg.LogChannelID == "" {
		return
	}
	if _, err := s.platform.SendMessage(ctx, s.cfg.LogChannelID, msg); err != nil {
		s.log.Warn().Err(err).Msg("Failed to post to log channel")
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
