package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "giveaway-bot/internal/common/errors"
	dqservice "giveaway-bot/internal/features/disqualify/service"
	"giveaway-bot/internal/features/giveaway/service"
	"giveaway-bot/internal/features/giveaway/templates"
	"giveaway-bot/internal/platform/chat"
	"giveaway-bot/internal/platform/sysinfo"
)

// Longest message the platform accepts.
const maxMessageLength = 2000

// g!start duration ; winners ; title ; [description] ; [holder]
func (r *Router) start(ctx context.Context, req *request) error {
	args := SplitArgs(req.rest, r.cfg.ArgDelimiter, 5, false)
	if args[0] == "" || args[1] == "" {
		return apperrors.New(apperrors.ErrCodeMissingArgument,
			fmt.Sprintf("Usage: `%sstart duration %s winners %s title %s [description] %s [holder]`",
				r.cfg.Prefix, r.cfg.ArgDelimiter, r.cfg.ArgDelimiter, r.cfg.ArgDelimiter, r.cfg.ArgDelimiter))
	}

	res, err := r.giveaways.Create(ctx, service.CreateInput{
		GuildID:     req.msg.GuildID,
		ChannelID:   req.msg.ChannelID,
		HostID:      req.msg.Author.ID,
		HostTag:     req.msg.Author.Tag(),
		Duration:    args[0],
		Winners:     args[1],
		Title:       args[2],
		Description: args[3],
		Holder:      args[4],
	})
	if err != nil {
		return err
	}

	if len(res.Warnings) == 0 {
		r.ack(ctx, req.msg)
		return nil
	}
	embeds := make([]chat.Embed, 0, len(res.Warnings))
	for _, w := range res.Warnings {
		embeds = append(embeds, templates.Warning(w))
	}
	r.reply(ctx, req.msg, embeds...)
	return nil
}

// g!end id
func (r *Router) end(ctx context.Context, req *request) error {
	id := SplitArgs(req.rest, r.cfg.ArgDelimiter, 1, false)[0]
	if id == "" {
		return apperrors.New(apperrors.ErrCodeMissingArgument, "Missing required argument: giveaway id")
	}
	if _, err := r.giveaways.End(ctx, id); err != nil {
		return err
	}
	r.ack(ctx, req.msg)
	return nil
}

// g!reroll id [; winners]
func (r *Router) reroll(ctx context.Context, req *request) error {
	args := SplitArgs(req.rest, r.cfg.ArgDelimiter, 2, false)
	if args[0] == "" {
		return apperrors.New(apperrors.ErrCodeMissingArgument, "Missing required argument: giveaway id")
	}
	_, err := r.giveaways.Reroll(ctx, service.RerollInput{
		ID:        args[0],
		Count:     args[1],
		ChannelID: req.msg.ChannelID,
	})
	return err
}

// g!dq user ; duration ; [reason] ; [silent]
func (r *Router) disqualify(ctx context.Context, req *request) error {
	args := SplitArgs(req.rest, r.cfg.ArgDelimiter, 4, false)
	if args[0] == "" || args[1] == "" {
		return apperrors.New(apperrors.ErrCodeMissingArgument,
			fmt.Sprintf("Usage: `%sdq user %s duration %s [reason]`", r.cfg.Prefix, r.cfg.ArgDelimiter, r.cfg.ArgDelimiter))
	}

	res, err := r.dq.Disqualify(ctx, dqservice.DisqualifyInput{
		GuildID:      req.msg.GuildID,
		MemberRef:    args[0],
		Duration:     args[1],
		Reason:       args[2],
		Silent:       args[3] != "",
		ModeratorTag: req.msg.Author.Tag(),
	})
	if err != nil {
		return err
	}
	if res.Overwritten {
		r.reply(ctx, req.msg, templates.Warning("Disqualification duration overwritten"))
		return nil
	}
	r.ack(ctx, req.msg)
	return nil
}

// g!ticket posts the message members react to for a modmail ticket.
func (r *Router) ticket(ctx context.Context, req *request) error {
	_, err := r.modmail.Post(ctx, req.msg.ChannelID)
	return err
}

// g!db c|a|d prints the active giveaways, the archive or the disqualifications.
func (r *Router) db(ctx context.Context, req *request) error {
	var (
		docs []interface{}
		err  error
	)
	switch strings.TrimSpace(req.rest) {
	case "c":
		list, e := r.giveaways.ListActive(ctx)
		err = e
		for _, g := range list {
			docs = append(docs, g)
		}
	case "a":
		list, e := r.giveaways.ListArchived(ctx)
		err = e
		for _, g := range list {
			docs = append(docs, g)
		}
	case "d":
		list, e := r.dq.List(ctx)
		err = e
		for _, d := range list {
			docs = append(docs, d)
		}
	default:
		return apperrors.NewValidationError("collection",
			"```Requires 1 literal argument:\n"+
				"c for active giveaways\n"+
				"a for all giveaways\n"+
				"d for active disqualifications\n\n"+
				fmt.Sprintf("Example:\n%sdb c\n(this prints all active giveaways)```", r.cfg.Prefix))
	}
	if err != nil {
		return err
	}

	for _, chunk := range chunkJSON(docs) {
		if _, err := r.platform.SendMessage(ctx, req.msg.ChannelID, chat.Message{Content: chunk}); err != nil {
			return apperrors.NewChatAPIError("send db dump", err)
		}
	}
	return nil
}

// chunkJSON renders docs as json code blocks that each fit in one message.
func chunkJSON(docs []interface{}) []string {
	const open, closing = "```json\n", "```"

	var (
		chunks  []string
		current = open
	)
	for _, doc := range docs {
		data, err := json.MarshalIndent(doc, "", "    ")
		if err != nil {
			continue
		}
		text := string(data)
		if len(current)+len(text)+len(closing)+1 > maxMessageLength && current != open {
			chunks = append(chunks, current+closing)
			current = open
		}
		if len(open)+len(text)+len(closing)+1 > maxMessageLength {
			text = text[:maxMessageLength-len(open)-len(closing)-1]
		}
		current += "\n" + text
	}
	return append(chunks, current+closing)
}

func (r *Router) status(ctx context.Context, req *request) error {
	active, err := r.giveaways.ListActive(ctx)
	if err != nil {
		return err
	}
	s := sysinfo.Collect(ctx)

	embed := chat.Embed{
		Title: "Status",
		Color: templates.ColorBlue,
		Fields: []chat.EmbedField{
			{Name: "Active giveaways", Value: fmt.Sprintf("%d", len(active)), Inline: true},
			{Name: "Completions in flight", Value: fmt.Sprintf("%d", r.giveaways.InFlight()), Inline: true},
			{Name: "Uptime", Value: s.Uptime.String(), Inline: true},
			{Name: "OS", Value: orDash(s.OS), Inline: true},
			{Name: "Go", Value: s.GoVersion, Inline: true},
			{Name: "Goroutines", Value: fmt.Sprintf("%d", s.Goroutines), Inline: true},
			{Name: "CPU", Value: fmt.Sprintf("%.1f%% of %d cores", s.CPUPercent, s.CPUCount), Inline: true},
			{Name: "Memory", Value: fmt.Sprintf("%.1f%% (%d MB / %d MB)", s.MemPercent, s.MemUsedMB, s.MemTotalMB), Inline: true},
			{Name: "Process RSS", Value: fmt.Sprintf("%d MB", s.ProcessRSSMB), Inline: true},
		},
	}
	r.reply(ctx, req.msg, embed)
	return nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
