package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	apperrors "giveaway-bot/internal/common/errors"
	"giveaway-bot/internal/features/giveaway/models"
	"giveaway-bot/internal/features/giveaway/repository"
	"giveaway-bot/internal/features/giveaway/templates"
	"giveaway-bot/internal/platform/chat"
	"giveaway-bot/internal/utils/duration"
	"giveaway-bot/internal/utils/random"
)

// Upper bound for the terminal actions of one giveaway once its wait is over.
const giveawayProcessingTimeout = 2 * time.Minute

// Complete waits for the giveaway's deadline, draws winners and archives it.
// Exactly one call per ending value performs the terminal actions; the
// returned outcome tells the others why they stopped.
func (s *GiveawayService) Complete(ctx context.Context, giveaway *models.Giveaway) (outcome models.Outcome) {
	log := s.log.With().Str("giveaway_id", giveaway.ID).Int64("ending", giveaway.Ending).Logger()

	ticket, ok := s.inflight.Acquire(giveaway.ID, giveaway.Ending)
	if !ok {
		log.Debug().Msg("Completion already in flight")
		return models.OutcomeDuplicate
	}
	defer s.inflight.Release(ticket)

	s.metrics.InFlightInc()
	defer s.metrics.InFlightDec()

	if wait := giveaway.EndingTime().Sub(s.clock.Now()); wait > 0 {
		log.Debug().Dur("wait", wait).Msg("Waiting for giveaway to end")
		select {
		case <-s.clock.After(wait):
		case <-ctx.Done():
			return models.OutcomeAborted
		}
	}

	if !s.inflight.Begin(ticket) {
		log.Debug().Msg("Completion superseded by a newer ending")
		return models.OutcomeSuperseded
	}

	select {
	case s.finishSlots <- struct{}{}:
	case <-ctx.Done():
		return models.OutcomeAborted
	}
	defer func() { <-s.finishSlots }()

	// Once started, finishing is not interrupted by shutdown.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), giveawayProcessingTimeout)
	defer cancel()

	current, err := s.repo.Find(ctx, giveaway.ID)
	if errors.Is(err, repository.ErrGiveawayNotFound) {
		log.Debug().Msg("Giveaway already ended")
		return models.OutcomeAlreadyEnded
	}
	if err != nil {
		log.Warn().Err(err).Msg("Store unavailable, leaving giveaway for the next sweep")
		s.metrics.RecordCompletion(string(models.OutcomeRetry), 0)
		return models.OutcomeRetry
	}
	if current.Ending > s.clock.Now().Unix() {
		// the stored deadline moved past ours
		return models.OutcomeSuperseded
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.reporter.ReportPanic(ctx, "giveaway completion "+giveaway.ID, r, debug.Stack())
			outcome = s.recovered(ctx, current)
		}
		s.metrics.RecordCompletion(string(outcome), time.Since(start))
		log.Info().Str("outcome", string(outcome)).Msg("Giveaway completion finished")
	}()

	return s.finish(ctx, current)
}

func (s *GiveawayService) finish(ctx context.Context, giveaway *models.Giveaway) models.Outcome {
	loc, err := giveaway.Location()
	if err != nil {
		return s.abandon(ctx, giveaway, models.OutcomeError, "Giveaway record has a malformed path", err)
	}

	channel, err := s.platform.FetchChannel(ctx, loc.ChannelID)
	if err != nil {
		outcome := models.OutcomeError
		if errors.Is(err, chat.ErrNotFound) || errors.Is(err, chat.ErrForbidden) {
			outcome = models.OutcomeNotFound
		}
		return s.abandon(ctx, giveaway, outcome, "Failed to fetch giveaway channel", err)
	}

	msg, err := s.platform.FetchMessage(ctx, channel.ID, loc.MessageID)
	if errors.Is(err, chat.ErrNotFound) {
		return s.missing(ctx, giveaway, channel.ID)
	}
	if err != nil {
		return s.abandon(ctx, giveaway, models.OutcomeError, "Failed to fetch giveaway message", err)
	}

	if len(msg.Embeds) == 0 {
		outcome := s.archive(ctx, giveaway, models.OutcomeNoWinner, nil)
		if outcome == models.OutcomeRetry {
			return outcome
		}
		s.send(ctx, giveaway, channel.ID, chat.Message{Embeds: []chat.Embed{templates.NoWinnerEmbedDeleted(giveaway.JumpURL())}})
		return outcome
	}
	embed := msg.Embeds[0]

	winners, err := s.draw(ctx, channel.ID, msg.ID, giveaway.Winners)
	if err != nil {
		return s.abandon(ctx, giveaway, models.OutcomeError, "Failed to read giveaway entries", err)
	}

	if len(winners) == 0 {
		outcome := s.archive(ctx, giveaway, models.OutcomeNoWinner, nil)
		if outcome == models.OutcomeRetry {
			return outcome
		}
		s.markEnded(ctx, giveaway, channel.ID, msg.ID, embed)
		s.send(ctx, giveaway, channel.ID, chat.Message{Embeds: []chat.Embed{templates.NoWinner(giveaway.JumpURL(), "")}})
		return outcome
	}

	outcome := s.archive(ctx, giveaway, models.OutcomeCompleted, winners)
	if outcome == models.OutcomeRetry {
		return outcome
	}
	s.markEnded(ctx, giveaway, channel.ID, msg.ID, embed)
	s.publishResult(ctx, giveaway, embed, channel.ID, winners, false)
	return outcome
}

// draw reads the entry reactions and selects up to count winners.
func (s *GiveawayService) draw(ctx context.Context, channelID, messageID string, count int) ([]string, error) {
	reactors, err := s.platform.Reactors(ctx, channelID, messageID, s.cfg.EntryEmoji)
	if err != nil && !errors.Is(err, chat.ErrNotFound) {
		return nil, err
	}
	ids := make([]string, 0, len(reactors))
	for _, u := range reactors {
		ids = append(ids, u.ID)
	}
	return random.SelectWinners(ids, s.platform.BotUser().ID, count), nil
}

// archive moves the record out of the active store. A store failure leaves
// the record active and turns the outcome into a retry.
func (s *GiveawayService) archive(ctx context.Context, giveaway *models.Giveaway, outcome models.Outcome, winners []string) models.Outcome {
	archived := giveaway.Archived(outcome, winners, s.clock.Now())
	if err := s.repo.MoveToArchive(ctx, archived); err != nil {
		s.log.Error().Err(err).Str("giveaway_id", giveaway.ID).Msg("Failed to archive giveaway")
		return models.OutcomeRetry
	}
	return outcome
}

// recovered settles a completion that panicked. A giveaway that already
// left the active store keeps the outcome it was archived with.
func (s *GiveawayService) recovered(ctx context.Context, giveaway *models.Giveaway) models.Outcome {
	if _, err := s.repo.Find(ctx, giveaway.ID); errors.Is(err, repository.ErrGiveawayNotFound) {
		if archived, err := s.repo.FindArchived(ctx, giveaway.ID); err == nil {
			return archived.Outcome
		}
	}
	return s.archive(ctx, giveaway, models.OutcomeError, nil)
}

// abandon archives a giveaway that cannot be finished and reports it.
func (s *GiveawayService) abandon(ctx context.Context, giveaway *models.Giveaway, outcome models.Outcome, summary string, err error) models.Outcome {
	outcome = s.archive(ctx, giveaway, outcome, nil)
	if outcome == models.OutcomeRetry {
		return outcome
	}
	s.reporter.Report(ctx, summary, giveaway, err)
	return outcome
}

// missing handles an announcement that was deleted before the giveaway ended.
func (s *GiveawayService) missing(ctx context.Context, giveaway *models.Giveaway, channelID string) models.Outcome {
	outcome := s.archive(ctx, giveaway, models.OutcomeNotFound, nil)
	if outcome == models.OutcomeRetry {
		return outcome
	}

	data, _ := json.MarshalIndent(giveaway, "", "    ")
	owner := "the bot owner"
	if s.cfg.OwnerID != "" {
		owner = fmt.Sprintf("<@%s>", s.cfg.OwnerID)
	}
	_, err := s.platform.SendMessage(ctx, channelID, chat.Message{
		Embeds: []chat.Embed{templates.GiveawayMissing(owner, string(data))},
	})
	if err != nil {
		s.reporter.Report(ctx, "Giveaway message is missing and the channel is not writable", giveaway, err)
	}
	return outcome
}

func (s *GiveawayService) markEnded(ctx context.Context, giveaway *models.Giveaway, channelID, messageID string, embed chat.Embed) {
	_, err := s.platform.EditMessage(ctx, channelID, messageID, chat.Message{Embeds: []chat.Embed{templates.MarkEnded(embed)}})
	if err != nil {
		s.reporter.Report(ctx, "Failed to mark giveaway as ended", giveaway, err)
	}
}

func (s *GiveawayService) send(ctx context.Context, giveaway *models.Giveaway, channelID string, msg chat.Message) *chat.Message {
	sent, err := s.platform.SendMessage(ctx, channelID, msg)
	if err != nil {
		s.reporter.Report(ctx, "Failed to publish giveaway result", giveaway, err)
		return nil
	}
	return sent
}

// publishResult posts the winners to channelID. Results posted in a giveaway
// channel open a follow-up thread per winner instead of pinging them there.
func (s *GiveawayService) publishResult(ctx context.Context, giveaway *models.Giveaway, embed chat.Embed, channelID string, winners []string, reroll bool) *chat.Message {
	tickets := s.cfg.TicketChannelID != "" && s.isGiveawayChannel(channelID)

	mentions := make([]string, len(winners))
	for i, id := range winners {
		mentions[i] = fmt.Sprintf("<@%s>", id)
	}
	sent := s.send(ctx, giveaway, channelID, templates.Result(templates.ResultParams{
		WinnerMentions: mentions,
		Title:          embed.Title,
		Description:    embed.Description,
		Holder:         giveaway.Holder,
		JumpURL:        giveaway.JumpURL(),
		MentionWinners: !tickets,
		Reroll:         reroll,
	}))

	if tickets {
		for _, id := range winners {
			s.openTicket(ctx, giveaway, embed, id)
		}
	}
	return sent
}

func (s *GiveawayService) openTicket(ctx context.Context, giveaway *models.Giveaway, embed chat.Embed, winnerID string) {
	loc, _ := giveaway.Location()
	name := winnerID
	if member, err := s.platform.ResolveMember(ctx, loc.GuildID, winnerID); err == nil {
		name = member.User.Username
	}

	prize := giveaway.Prize
	if prize == "" {
		prize = embed.Title
	}

	members := []string{winnerID}
	holderID := giveaway.Holder.UserID()
	if holderID != "" && holderID != winnerID {
		members = append(members, holderID)
	}

	ticket, err := s.platform.OpenTicket(ctx, chat.TicketRequest{
		ParentID: s.cfg.TicketChannelID,
		Name:     models.ThreadName(giveaway.Row, prize, name, winnerID),
		UserID:   winnerID,
		Members:  members,
		Message: chat.Message{
			Content: fmt.Sprintf("<@%s>", winnerID),
			Embeds:  []chat.Embed{templates.WinnerGuide(prize, "", giveaway.JumpURL())},
		},
	})
	if err != nil {
		s.reporter.Report(ctx, fmt.Sprintf("Failed to open ticket for winner <@%s>", winnerID), giveaway, err)
		return
	}

	if giveaway.Holder.Mention == "" {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.awaitWinner(ticket.ThreadID, winnerID, giveaway.Holder)
	}()
}

// awaitWinner pings the holder once the winner writes in their ticket.
func (s *GiveawayService) awaitWinner(threadID, winnerID string, holder models.Holder) {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.WinnerReplyTimeout)
	defer cancel()

	reply, err := s.platform.AwaitMessage(ctx, threadID, func(m *chat.Message) bool {
		return m.Author.ID == winnerID
	})
	if err != nil {
		s.log.Debug().Err(err).Str("thread_id", threadID).Msg("Stopped waiting for winner reply")
		return
	}

	_, err = s.platform.SendMessage(ctx, threadID, chat.Message{
		Content:   holder.Mention,
		Reference: &chat.MessageRef{ChannelID: threadID, MessageID: reply.ID},
	})
	if err != nil {
		s.log.Warn().Err(err).Str("thread_id", threadID).Msg("Failed to ping holder")
	}
}

// RerollInput selects new winners for an ended giveaway.
type RerollInput struct {
	ID string
	// Count is a winners token such as "2" or "2w"; empty means one winner.
	Count string
	// ChannelID is where the result is posted; empty means the giveaway's channel.
	ChannelID string
}

type RerollResult struct {
	Giveaway  *models.Giveaway
	WinnerIDs []string
	Message   *chat.Message
}

// Reroll draws new winners from the current reactions of an archived
// giveaway. The archived record is left untouched.
func (s *GiveawayService) Reroll(ctx context.Context, in RerollInput) (*RerollResult, error) {
	count := 1
	if in.Count != "" {
		n, err := duration.ParseWinners(in.Count)
		if err != nil {
			return nil, err
		}
		count = n
	}

	giveaway, err := s.repo.FindArchived(ctx, in.ID)
	if errors.Is(err, repository.ErrGiveawayNotFound) {
		return nil, apperrors.NewGiveawayNotFoundError(in.ID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("find archived giveaway", err)
	}

	loc, err := giveaway.Location()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Archived giveaway has a malformed path")
	}
	msg, err := s.platform.FetchMessage(ctx, loc.ChannelID, loc.MessageID)
	if errors.Is(err, chat.ErrNotFound) || errors.Is(err, chat.ErrForbidden) {
		return nil, apperrors.NewNotFoundError("giveaway message", in.ID)
	}
	if err != nil {
		return nil, apperrors.NewChatAPIError("fetch giveaway message", err)
	}
	if len(msg.Embeds) == 0 {
		return nil, apperrors.NewValidationError("id", "Giveaway message has no embed to reroll")
	}

	winners, err := s.draw(ctx, loc.ChannelID, loc.MessageID, count)
	if err != nil {
		return nil, apperrors.NewChatAPIError("read giveaway entries", err)
	}

	channelID := in.ChannelID
	if channelID == "" {
		channelID = loc.ChannelID
	}
	result := &RerollResult{Giveaway: giveaway, WinnerIDs: winners}
	s.metrics.RecordReroll()

	if len(winners) == 0 {
		result.Message = s.send(ctx, giveaway, channelID, chat.Message{Embeds: []chat.Embed{templates.NoWinner(giveaway.JumpURL(), "")}})
		return result, nil
	}
	result.Message = s.publishResult(ctx, giveaway, msg.Embeds[0], channelID, winners, true)

	s.log.Info().Str("giveaway_id", giveaway.ID).Strs("winners", winners).Msg("Giveaway rerolled")
	return result, nil
}
