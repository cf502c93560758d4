package service

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "giveaway-bot/internal/common/errors"
	"giveaway-bot/internal/common/logger"
	"giveaway-bot/internal/features/giveaway/models"
	"giveaway-bot/internal/features/giveaway/templates"
	"giveaway-bot/internal/platform/chat"
)

// Reporter sends failures that need a human to the operator channel, or to
// the owner's DMs when no channel is configured.
type Reporter struct {
	platform  chat.Platform
	channelID string
	ownerID   string
	log       zerolog.Logger
}

func NewReporter(platform chat.Platform, operatorChannelID, ownerID string) *Reporter {
	return &Reporter{
		platform:  platform,
		channelID: operatorChannelID,
		ownerID:   ownerID,
		log:       logger.Component("reporter"),
	}
}

// Report logs and forwards a failure. The record, when given, is attached as
// JSON so the giveaway can be recovered by hand. It returns the report id.
func (r *Reporter) Report(ctx context.Context, summary string, giveaway *models.Giveaway, err error) string {
	id := uuid.New().String()[:8]

	var detail strings.Builder
	if giveaway != nil {
		if data, mErr := json.MarshalIndent(giveaway, "", "    "); mErr == nil {
			detail.WriteString(string(data))
			detail.WriteString("\n")
		}
	}
	if err != nil {
		detail.WriteString(err.Error())
		detail.WriteString("\n")
		if appErr, ok := apperrors.AsAppError(err); ok && len(appErr.Stack) > 0 {
			detail.WriteString(strings.Join(appErr.Stack, "\n"))
		} else {
			detail.Write(debug.Stack())
		}
	}

	event := r.log.Error().Err(err).Str("report_id", id)
	if giveaway != nil {
		event = event.Str("giveaway_id", giveaway.ID).Str("path", giveaway.Path)
	}
	event.Msg(summary)

	r.send(ctx, chat.Message{Embeds: []chat.Embed{templates.OperatorReport(id, summary, detail.String())}})
	return id
}

// ReportPanic forwards a recovered panic from a command handler.
func (r *Reporter) ReportPanic(ctx context.Context, where string, recovered interface{}, stack []byte) string {
	id := uuid.New().String()[:8]
	r.log.Error().Str("report_id", id).Str("where", where).Interface("panic", recovered).Msg("Recovered from panic")

	summary := fmt.Sprintf("Panic in %s: %v", where, recovered)
	r.send(ctx, chat.Message{Embeds: []chat.Embed{templates.OperatorReport(id, summary, string(stack))}})
	return id
}

func (r *Reporter) send(ctx context.Context, msg chat.Message) {
	var err error
	switch {
	case r.channelID != "":
		_, err = r.platform.SendMessage(ctx, r.channelID, msg)
	case r.ownerID != "":
		_, err = r.platform.SendDirect(ctx, r.ownerID, msg)
	default:
		return
	}
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to deliver operator report")
	}
}
