package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"giveaway-bot/internal/platform/chat"
)

// AwaitMessage registers a one-shot waiter that is fed from the gateway.
func (c *Client) AwaitMessage(ctx context.Context, channelID string, match func(*chat.Message) bool) (*chat.Message, error) {
	w := &waiter{channelID: channelID, match: match, ch: make(chan *chat.Message, 1)}

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.waiters[id] = w
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.waiters, id)
		c.mu.Unlock()
	}()

	select {
	case msg := <-w.ch:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Message == nil || m.Author == nil {
		return
	}
	msg := fromMessage(m.Message)
	c.dispatchWaiters(msg)

	if m.Author.Bot {
		return
	}
	c.handlersMu.RLock()
	handlers := c.onMessage
	c.handlersMu.RUnlock()
	for _, fn := range handlers {
		fn(msg)
	}
}

func (c *Client) dispatchWaiters(msg *chat.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, w := range c.waiters {
		if w.channelID != msg.ChannelID || !w.match(msg) {
			continue
		}
		select {
		case w.ch <- msg:
		default:
		}
		delete(c.waiters, id)
	}
}

func (c *Client) handleReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.MessageReaction == nil || r.GuildID == "" {
		return
	}
	if s.State != nil && s.State.User != nil && r.UserID == s.State.User.ID {
		return
	}
	event := chat.Reaction{
		GuildID:   r.GuildID,
		ChannelID: r.ChannelID,
		MessageID: r.MessageID,
		UserID:    r.UserID,
		Emoji:     r.Emoji.Name,
	}
	if r.Member != nil {
		event.RoleIDs = append([]string(nil), r.Member.Roles...)
	}

	c.handlersMu.RLock()
	handlers := c.onReaction
	c.handlersMu.RUnlock()
	for _, fn := range handlers {
		fn(event)
	}
}
