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

	"giveaway-bot/internal/common/config"
	apperrors "giveaway-bot/internal/common/errors"
	"giveaway-bot/internal/common/logger"
	"giveaway-bot/internal/common/metrics"
	"giveaway-bot/internal/features/giveaway/models"
	"giveaway-bot/internal/features/giveaway/repository"
	"giveaway-bot/internal/features/giveaway/templates"
	"giveaway-bot/internal/platform/chat"
	"giveaway-bot/internal/utils/duration"
)

// Maximum number of giveaways drawing winners at the same time.
const maxConcurrentFinishing = 10

// Config holds the engine's tunables.
type Config struct {
	SweepInterval      time.Duration
	DedupWindow        time.Duration
	WinnerReplyTimeout time.Duration
	EntryEmoji         string
	GiveawayChannelIDs []string
	TicketChannelID    string
	OwnerID            string
}

// ConfigFrom extracts the engine settings from the process config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		SweepInterval:      cfg.Giveaway.SweepInterval,
		DedupWindow:        cfg.Giveaway.DedupWindow,
		WinnerReplyTimeout: cfg.Giveaway.WinnerReplyTimeout,
		EntryEmoji:         cfg.Giveaway.EntryEmoji,
		GiveawayChannelIDs: cfg.Discord.GiveawayChannelIDs,
		TicketChannelID:    cfg.Discord.TicketChannelID,
		OwnerID:            cfg.Discord.OwnerID,
	}
}

type Option func(*GiveawayService)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *GiveawayService) { s.clock = c }
}

// GiveawayService runs giveaways from announcement to archive.
type GiveawayService struct {
	repo     repository.GiveawayRepository
	platform chat.Platform
	reporter *Reporter
	metrics  *metrics.Collector
	cfg      Config
	clock    Clock
	inflight *inflight
	log      zerolog.Logger

	finishSlots chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewGiveawayService(
	repo repository.GiveawayRepository,
	platform chat.Platform,
	reporter *Reporter,
	m *metrics.Collector,
	cfg Config,
	opts ...Option,
) *GiveawayService {
	ctx, cancel := context.WithCancel(context.Background())
	s := &GiveawayService{
		repo:        repo,
		platform:    platform,
		reporter:    reporter,
		metrics:     m,
		cfg:         cfg,
		clock:       realClock{},
		log:         logger.Component("giveaway"),
		finishSlots: make(chan struct{}, maxConcurrentFinishing),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.inflight = newInflight(cfg.DedupWindow, s.clock.Now)
	return s
}

// CreateInput is a start command's arguments as typed by the host.
type CreateInput struct {
	GuildID   string
	ChannelID string
	HostID    string
	HostTag   string

	Duration    string
	Winners     string
	Title       string
	Description string
	Holder      string
}

type CreateResult struct {
	Giveaway *models.Giveaway
	Message  *chat.Message
	// Warnings are shown to the host but did not stop the giveaway.
	Warnings []string
	// Scheduled is true when the completion was started in process rather
	// than left to the sweep.
	Scheduled bool
}

// Create publishes a new giveaway and persists it.
func (s *GiveawayService) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	winners, err := duration.ParseWinners(in.Winners)
	if err != nil {
		return nil, err
	}
	seconds, err := duration.Parse(in.Duration)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	description := strings.ReplaceAll(strings.TrimSpace(in.Description), `\n`, "\n")
	if title == "" && description == "" {
		return nil, apperrors.New(apperrors.ErrCodeMissingArgument, "Giveaway needs a title or a description")
	}
	if n := len([]rune(title)); n > templates.MaxTitleLength {
		return nil, apperrors.NewValidationError("title", fmt.Sprintf(
			"Giveaway prize (title) length must not be longer than %d\n```\n%s```Is %d characters",
			templates.MaxTitleLength, title, n))
	}

	now := s.clock.Now()
	ending := now.Unix() + seconds
	result := &CreateResult{}

	holder, warning := s.resolveHolder(ctx, in)
	if warning != "" {
		result.Warnings = append(result.Warnings, warning)
	}

	embed, err := templates.RunningGiveaway(ending, winners, holder, title, description)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to build announcement")
	}
	msg, err := s.platform.SendMessage(ctx, in.ChannelID, chat.Message{Embeds: []chat.Embed{embed}})
	if err != nil {
		if errors.Is(err, chat.ErrForbidden) {
			return nil, apperrors.NewForbiddenError(fmt.Sprintf("I need `Send Messages` permission at <#%s>", in.ChannelID))
		}
		return nil, apperrors.NewChatAPIError("publish announcement", err)
	}
	result.Message = msg

	if err := s.platform.AddReaction(ctx, in.ChannelID, msg.ID, s.cfg.EntryEmoji); err != nil {
		s.log.Warn().Err(err).Str("giveaway_id", msg.ID).Msg("Failed to add entry reaction")
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"I need `Add Reaction` permission at <#%s>.\nPlease manually add reaction of %s to [the message](%s)",
			in.ChannelID, s.cfg.EntryEmoji, msg.JumpURL()))
	}

	prize, row, ok := models.ExtractPrize(description)
	if !ok {
		prize = title
	}

	loc := models.Location{GuildID: in.GuildID, ChannelID: in.ChannelID, MessageID: msg.ID}
	giveaway := &models.Giveaway{
		ID:        msg.ID,
		Ending:    ending,
		Winners:   winners,
		Holder:    holder,
		Path:      loc.Path(),
		Prize:     prize,
		Row:       row,
		CreatedAt: now.Unix(),
		HostID:    in.HostID,
	}
	if err := s.repo.Insert(ctx, giveaway); err != nil {
		return nil, apperrors.NewDatabaseError("insert giveaway", err).WithContext("giveaway_id", giveaway.ID)
	}
	result.Giveaway = giveaway
	s.metrics.RecordCreated()

	s.log.Info().
		Str("giveaway_id", giveaway.ID).
		Int64("ending", giveaway.Ending).
		Int("winners", giveaway.Winners).
		Msg("Giveaway created")

	if giveaway.Ending < now.Add(s.cfg.SweepInterval).Unix() {
		result.Scheduled = s.launch(giveaway)
	}
	return result, nil
}

func (s *GiveawayService) resolveHolder(ctx context.Context, in CreateInput) (models.Holder, string) {
	host := models.NewHostHolder(fmt.Sprintf("<@%s>", in.HostID), in.HostTag)
	ref := strings.TrimSpace(in.Holder)
	if ref == "" {
		return host, ""
	}

	member, err := s.platform.ResolveMember(ctx, in.GuildID, ref)
	if err != nil {
		s.log.Debug().Err(err).Str("holder", ref).Msg("Holder not resolved, falling back to host")
		return host, fmt.Sprintf("Cannot convert `%s` to server member\nItem holder has been set to command author.", ref)
	}
	return models.NewContactHolder(member.Mention(), member.Tag()), ""
}

// End moves an active giveaway's deadline to now and completes it.
func (s *GiveawayService) End(ctx context.Context, id string) (*models.Giveaway, error) {
	giveaway, err := s.repo.Find(ctx, id)
	if errors.Is(err, repository.ErrGiveawayNotFound) {
		return nil, apperrors.NewGiveawayNotFoundError(id)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("find giveaway", err)
	}

	giveaway.Ending = s.clock.Now().Unix()
	err = s.repo.Replace(ctx, giveaway)
	if errors.Is(err, repository.ErrGiveawayNotFound) {
		// archived between the lookup and the write
		return nil, apperrors.NewGiveawayNotFoundError(id)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("replace giveaway", err)
	}

	s.log.Info().Str("giveaway_id", id).Msg("Giveaway ended early")
	s.launch(giveaway)
	return giveaway, nil
}

// launch runs Complete in the background under the engine's context.
func (s *GiveawayService) launch(giveaway *models.Giveaway) bool {
	if s.ctx.Err() != nil {
		return false
	}
	s.metrics.RecordLaunch()
	s.wg.Add(1)
	go func(g *models.Giveaway) {
		defer s.wg.Done()
		s.Complete(s.ctx, g)
	}(giveaway.Clone())
	return true
}

func (s *GiveawayService) ListActive(ctx context.Context) ([]*models.Giveaway, error) {
	giveaways, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list giveaways", err)
	}
	sort.Slice(giveaways, func(i, j int) bool { return giveaways[i].Ending < giveaways[j].Ending })
	return giveaways, nil
}

func (s *GiveawayService) ListArchived(ctx context.Context) ([]*models.Giveaway, error) {
	giveaways, err := s.repo.FindAllArchived(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list archived giveaways", err)
	}
	sort.Slice(giveaways, func(i, j int) bool { return giveaways[i].Ending > giveaways[j].Ending })
	return giveaways, nil
}

func (s *GiveawayService) GetActive(ctx context.Context, id string) (*models.Giveaway, error) {
	return s.get(ctx, id, s.repo.Find)
}

func (s *GiveawayService) GetArchived(ctx context.Context, id string) (*models.Giveaway, error) {
	return s.get(ctx, id, s.repo.FindArchived)
}

func (s *GiveawayService) get(ctx context.Context, id string, find func(context.Context, string) (*models.Giveaway, error)) (*models.Giveaway, error) {
	g, err := find(ctx, id)
	if errors.Is(err, repository.ErrGiveawayNotFound) {
		return nil, apperrors.NewGiveawayNotFoundError(id)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("find giveaway", err)
	}
	return g, nil
}

// IsGiveawayMessage reports whether messageID is a giveaway, running or ended.
func (s *GiveawayService) IsGiveawayMessage(ctx context.Context, messageID string) (bool, error) {
	if _, err := s.repo.Find(ctx, messageID); err == nil {
		return true, nil
	} else if !errors.Is(err, repository.ErrGiveawayNotFound) {
		return false, err
	}
	if _, err := s.repo.FindArchived(ctx, messageID); err == nil {
		return true, nil
	} else if !errors.Is(err, repository.ErrGiveawayNotFound) {
		return false, err
	}
	return false, nil
}

// Ping checks the store.
func (s *GiveawayService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *GiveawayService) InFlight() int {
	return s.inflight.Len()
}

// Shutdown stops waiting tasks and returns once they have exited or ctx ends.
// Giveaways still active are picked up by the sweep after restart.
func (s *GiveawayService) Shutdown(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info().Msg("Giveaway engine stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("giveaway engine shutdown: %w", ctx.Err())
	}
}

func (s *GiveawayService) isGiveawayChannel(channelID string) bool {
	for _, id := range s.cfg.GiveawayChannelIDs {
		if id == channelID {
			return true
		}
	}
	return false
}
