// Package discord turns prefix commands and reactions from the chat platform
// into giveaway, disqualification and modmail operations.
package discord

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	apperrors "giveaway-bot/internal/common/errors"
	"giveaway-bot/internal/common/logger"
	"giveaway-bot/internal/common/metrics"
	dqservice "giveaway-bot/internal/features/disqualify/service"
	"giveaway-bot/internal/features/giveaway/models"
	"giveaway-bot/internal/features/giveaway/service"
	"giveaway-bot/internal/features/giveaway/templates"
	"giveaway-bot/internal/platform/chat"
)

// Bound on one command, including the replies it sends.
const commandTimeout = 30 * time.Second

type GiveawayService interface {
	Create(ctx context.Context, in service.CreateInput) (*service.CreateResult, error)
	End(ctx context.Context, id string) (*models.Giveaway, error)
	Reroll(ctx context.Context, in service.RerollInput) (*service.RerollResult, error)
	ListActive(ctx context.Context) ([]*models.Giveaway, error)
	ListArchived(ctx context.Context) ([]*models.Giveaway, error)
	InFlight() int
}

type Disqualifier interface {
	Disqualify(ctx context.Context, in dqservice.DisqualifyInput) (*dqservice.DisqualifyResult, error)
	List(ctx context.Context) ([]*models.Disqualification, error)
	CheckReaction(ctx context.Context, r chat.Reaction) (bool, error)
}

type Modmail interface {
	Post(ctx context.Context, channelID string) (*chat.Message, error)
	HandleReaction(ctx context.Context, r chat.Reaction) (bool, error)
}

type Reporter interface {
	Report(ctx context.Context, summary string, giveaway *models.Giveaway, err error) string
	ReportPanic(ctx context.Context, where string, recovered interface{}, stack []byte) string
}

type Config struct {
	Prefix       string
	ArgDelimiter string
	LogChannelID string
	// GiveawayRoleIDs may run giveaway commands; ModRoleIDs may run every command.
	GiveawayRoleIDs []string
	ModRoleIDs      []string
}

// access is who may run a command besides guild owners and administrators.
type access int

const (
	accessGiveaway access = iota
	accessMod
)

type command struct {
	access access
	run    func(ctx context.Context, req *request) error
}

type request struct {
	msg    *chat.Message
	rest   string
	member *chat.Member
}

type Router struct {
	platform  chat.Platform
	giveaways GiveawayService
	dq        Disqualifier
	modmail   Modmail
	reporter  Reporter
	metrics   *metrics.Collector
	cfg       Config
	commands  map[string]command
	log       zerolog.Logger
}

func NewRouter(
	platform chat.Platform,
	giveaways GiveawayService,
	dq Disqualifier,
	modmail Modmail,
	reporter Reporter,
	m *metrics.Collector,
	cfg Config,
) *Router {
	r := &Router{
		platform:  platform,
		giveaways: giveaways,
		dq:        dq,
		modmail:   modmail,
		reporter:  reporter,
		metrics:   m,
		cfg:       cfg,
		log:       logger.Component("commands"),
	}
	r.commands = map[string]command{
		"start":      {accessGiveaway, r.start},
		"end":        {accessGiveaway, r.end},
		"reroll":     {accessGiveaway, r.reroll},
		"disqualify": {accessMod, r.disqualify},
		"dq":         {accessMod, r.disqualify},
		"db":         {accessMod, r.db},
		"status":     {accessGiveaway, r.status},
		"ticket":     {accessMod, r.ticket},
	}
	return r
}

// HandleMessage runs the command in msg, if any. Guild messages only.
func (r *Router) HandleMessage(ctx context.Context, msg *chat.Message) {
	if msg.Author.Bot || msg.GuildID == "" {
		return
	}
	name, rest, ok := ParseCommand(msg.Content, r.cfg.Prefix)
	if !ok {
		return
	}
	cmd, ok := r.commands[name]
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			r.reporter.ReportPanic(ctx, "command "+name, rec, debug.Stack())
			r.reply(ctx, msg, templates.Error("Internal error, report submitted.", ""))
			r.metrics.RecordCommand(name, fmt.Errorf("panic: %v", rec))
		}
	}()

	member, err := r.platform.ResolveMember(ctx, msg.GuildID, msg.Author.ID)
	if err != nil {
		r.log.Warn().Err(err).Str("user_id", msg.Author.ID).Msg("Failed to resolve command author")
		return
	}
	if !r.allowed(member, cmd.access) {
		r.log.Debug().Str("command", name).Str("user_id", msg.Author.ID).Msg("Command denied")
		return
	}
	r.logUsage(ctx, msg)

	err = cmd.run(ctx, &request{msg: msg, rest: rest, member: member})
	r.metrics.RecordCommand(name, err)
	if err != nil {
		r.fail(ctx, msg, name, err)
	}
}

func (r *Router) allowed(m *chat.Member, a access) bool {
	if m.Owner || m.Administrator || m.HasAnyRole(r.cfg.ModRoleIDs) {
		return true
	}
	return a == accessGiveaway && m.HasAnyRole(r.cfg.GiveawayRoleIDs)
}

func (r *Router) logUsage(ctx context.Context, msg *chat.Message) {
	if r.cfg.LogChannelID == "" {
		return
	}
	embed := templates.CommandUsed(msg.Content, msg.Author.ID, msg.Author.Tag(), msg.ChannelID, msg.JumpURL())
	if _, err := r.platform.SendMessage(ctx, r.cfg.LogChannelID, chat.Message{Embeds: []chat.Embed{embed}}); err != nil {
		r.log.Warn().Err(err).Msg("Failed to log command usage")
	}
}

// fail replies with what the user may see and escalates the rest.
func (r *Router) fail(ctx context.Context, msg *chat.Message, name string, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.IsInternal() {
		r.reporter.Report(ctx, fmt.Sprintf("Command `%s` failed\n%s", name, msg.Content), nil, err)
	} else {
		r.log.Debug().Err(err).Str("command", name).Msg("Command rejected")
	}
	r.reply(ctx, msg, templates.FromError(err))
}

func (r *Router) reply(ctx context.Context, msg *chat.Message, embeds ...chat.Embed) {
	_, err := r.platform.SendMessage(ctx, msg.ChannelID, chat.Message{
		Embeds:    embeds,
		Reference: &chat.MessageRef{ChannelID: msg.ChannelID, MessageID: msg.ID},
	})
	if err != nil {
		r.log.Warn().Err(err).Str("channel_id", msg.ChannelID).Msg("Failed to reply")
	}
}

func (r *Router) ack(ctx context.Context, msg *chat.Message) {
	if err := r.platform.AddReaction(ctx, msg.ChannelID, msg.ID, "✅"); err != nil {
		r.log.Debug().Err(err).Msg("Failed to acknowledge command")
	}
}

// HandleReaction opens modmail tickets and removes entries from members who
// may not enter.
func (r *Router) HandleReaction(ctx context.Context, reaction chat.Reaction) {
	if reaction.GuildID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	handled, err := r.modmail.HandleReaction(ctx, reaction)
	if err != nil {
		r.reporter.Report(ctx, fmt.Sprintf("Failed to open modmail ticket for <@%s>", reaction.UserID), nil, err)
	}
	if handled {
		return
	}

	if _, err := r.dq.CheckReaction(ctx, reaction); err != nil {
		r.log.Error().Err(err).
			Str("message_id", reaction.MessageID).
			Str("user_id", reaction.UserID).
			Msg("Failed to check giveaway entry")
	}
}
