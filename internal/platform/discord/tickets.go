package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"giveaway-bot/internal/platform/chat"
)

// OpenTicket reuses a thread under req.ParentID whose name contains
// req.UserID, or starts a new private one.
func (c *Client) OpenTicket(ctx context.Context, req chat.TicketRequest) (*chat.Ticket, error) {
	parent, err := c.FetchChannel(ctx, req.ParentID)
	if err != nil {
		return nil, err
	}

	existing, err := c.findThread(ctx, parent, req.UserID)
	if err != nil {
		c.log.Warn().Err(err).Str("parent_id", parent.ID).Msg("Failed to list threads, creating a new ticket")
	}
	if existing != nil {
		if existing.Name != req.Name {
			_, err := c.session.ChannelEdit(existing.ID, &discordgo.ChannelEdit{Name: req.Name}, discordgo.WithContext(ctx))
			if err != nil {
				c.log.Warn().Err(err).Str("thread_id", existing.ID).Msg("Failed to rename ticket")
			}
		}
		msg, err := c.SendMessage(ctx, existing.ID, req.Message)
		if err != nil {
			return nil, err
		}
		return &chat.Ticket{ThreadID: existing.ID, Message: msg, Reused: true}, nil
	}

	thread, err := c.session.ThreadStartComplex(parent.ID, &discordgo.ThreadStart{
		Name:                req.Name,
		AutoArchiveDuration: ticketAutoArchive,
		Type:                discordgo.ChannelTypeGuildPrivateThread,
		Invitable:           false,
	}, discordgo.WithContext(ctx))
	if err != nil {
		// private threads need a boosted guild on some plans
		thread, err = c.session.ThreadStartComplex(parent.ID, &discordgo.ThreadStart{
			Name:                req.Name,
			AutoArchiveDuration: ticketAutoArchive,
			Type:                discordgo.ChannelTypeGuildPublicThread,
		}, discordgo.WithContext(ctx))
		if err != nil {
			return nil, classify("start thread", err)
		}
	}

	for _, id := range req.Members {
		if id == "" {
			continue
		}
		if err := c.session.ThreadMemberAdd(thread.ID, id, discordgo.WithContext(ctx)); err != nil {
			c.log.Warn().Err(err).Str("thread_id", thread.ID).Str("user_id", id).Msg("Failed to add ticket member")
		}
	}

	msg, err := c.SendMessage(ctx, thread.ID, req.Message)
	if err != nil {
		return nil, err
	}
	return &chat.Ticket{ThreadID: thread.ID, Message: msg}, nil
}

func (c *Client) findThread(ctx context.Context, parent *chat.Channel, userID string) (*discordgo.Channel, error) {
	if userID == "" {
		return nil, nil
	}
	match := func(threads []*discordgo.Channel) *discordgo.Channel {
		for _, t := range threads {
			if t.ParentID == parent.ID && strings.Contains(t.Name, userID) {
				return t
			}
		}
		return nil
	}

	active, err := c.session.GuildThreadsActive(parent.GuildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list active threads: %w", err)
	}
	if t := match(active.Threads); t != nil {
		return t, nil
	}

	private, err := c.session.ThreadsPrivateArchived(parent.ID, nil, 100, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list private archived threads: %w", err)
	}
	if t := match(private.Threads); t != nil {
		return t, nil
	}

	public, err := c.session.ThreadsArchived(parent.ID, nil, 100, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list archived threads: %w", err)
	}
	return match(public.Threads), nil
}
