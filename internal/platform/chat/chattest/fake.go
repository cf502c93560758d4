// Package chattest provides an in-memory chat.Platform for tests.
package chattest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"giveaway-bot/internal/platform/chat"
)

// Sent is one message the bot sent or edited.
type Sent struct {
	ChannelID string
	MessageID string
	Message   chat.Message
}

// Platform records every call. Messages sent through it can be fetched back.
// Errors set on the exported fields are returned by the matching call.
type Platform struct {
	mu sync.Mutex

	Bot     chat.User
	GuildID string

	messages map[string]*chat.Message
	reactors map[string][]chat.User
	members  map[string]*chat.Member
	roles    map[string][]string

	sent    []Sent
	edits   []Sent
	direct  []Sent
	tickets []chat.TicketRequest
	removed []string
	nextID  int

	replies chan *chat.Message

	FetchChannelErr error
	FetchMessageErr error
	SendErr         error
	EditErr         error
	ReactorsErr     error
	AddRoleErr      error
	RemoveRoleErr   error
	TicketErr       error

	// PanicOnSend makes SendMessage panic for this channel id.
	PanicOnSend string
}

func New() *Platform {
	return &Platform{
		Bot:      chat.User{ID: "bot", Username: "giveaways", Bot: true},
		GuildID:  "g1",
		messages: make(map[string]*chat.Message),
		reactors: make(map[string][]chat.User),
		members:  make(map[string]*chat.Member),
		roles:    make(map[string][]string),
		replies:  make(chan *chat.Message, 16),
	}
}

// PutMessage stores msg so FetchMessage finds it.
func (p *Platform) PutMessage(msg chat.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m := msg
	p.messages[msg.ID] = &m
}

func (p *Platform) DeleteMessage(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.messages, id)
}

// SetReactors sets who reacted to messageID, for any emoji.
func (p *Platform) SetReactors(messageID string, userIDs ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	users := make([]chat.User, 0, len(userIDs))
	for _, id := range userIDs {
		users = append(users, chat.User{ID: id, Username: "user" + id, Bot: id == p.Bot.ID})
	}
	p.reactors[messageID] = users
}

func (p *Platform) AddMember(m chat.Member) {
	p.mu.Lock()
	defer p.mu.Unlock()
	mm := m
	p.members[m.User.ID] = &mm
	p.roles[m.User.ID] = append([]string(nil), m.RoleIDs...)
}

// Reply delivers msg to AwaitMessage callers.
func (p *Platform) Reply(msg chat.Message) {
	p.replies <- &msg
}

func (p *Platform) Sent() []Sent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Sent(nil), p.sent...)
}

// SentTo returns the messages sent to channelID.
func (p *Platform) SentTo(channelID string) []chat.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []chat.Message
	for _, s := range p.sent {
		if s.ChannelID == channelID {
			out = append(out, s.Message)
		}
	}
	return out
}

func (p *Platform) Edits() []Sent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Sent(nil), p.edits...)
}

func (p *Platform) Direct() []Sent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Sent(nil), p.direct...)
}

func (p *Platform) Tickets() []chat.TicketRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]chat.TicketRequest(nil), p.tickets...)
}

// RemovedReactions lists "messageID/userID" for every removed reaction.
func (p *Platform) RemovedReactions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.removed...)
}

func (p *Platform) Roles(userID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.roles[userID]...)
}

func (p *Platform) BotUser() chat.User {
	return p.Bot
}

func (p *Platform) SendMessage(_ context.Context, channelID string, msg chat.Message) (*chat.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.SendErr != nil {
		return nil, p.SendErr
	}
	if p.PanicOnSend != "" && p.PanicOnSend == channelID {
		panic("chattest: send to " + channelID)
	}
	p.nextID++
	m := msg
	m.ID = fmt.Sprintf("m%d", p.nextID)
	m.ChannelID = channelID
	m.GuildID = p.GuildID
	m.Author = p.Bot
	p.messages[m.ID] = &m
	p.sent = append(p.sent, Sent{ChannelID: channelID, MessageID: m.ID, Message: m})
	out := m
	return &out, nil
}

func (p *Platform) EditMessage(_ context.Context, channelID, messageID string, msg chat.Message) (*chat.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.EditErr != nil {
		return nil, p.EditErr
	}
	existing, ok := p.messages[messageID]
	if !ok {
		return nil, chat.ErrNotFound
	}
	existing.Content = msg.Content
	existing.Embeds = msg.Embeds
	p.edits = append(p.edits, Sent{ChannelID: channelID, MessageID: messageID, Message: msg})
	out := *existing
	return &out, nil
}

func (p *Platform) SendDirect(_ context.Context, userID string, msg chat.Message) (*chat.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.SendErr != nil {
		return nil, p.SendErr
	}
	p.direct = append(p.direct, Sent{ChannelID: userID, Message: msg})
	m := msg
	return &m, nil
}

func (p *Platform) FetchChannel(_ context.Context, channelID string) (*chat.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FetchChannelErr != nil {
		return nil, p.FetchChannelErr
	}
	return &chat.Channel{ID: channelID, GuildID: p.GuildID, Name: "channel-" + channelID}, nil
}

func (p *Platform) FetchMessage(_ context.Context, channelID, messageID string) (*chat.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FetchMessageErr != nil {
		return nil, p.FetchMessageErr
	}
	m, ok := p.messages[messageID]
	if !ok || m.ChannelID != channelID {
		return nil, chat.ErrNotFound
	}
	out := *m
	out.Embeds = append([]chat.Embed(nil), m.Embeds...)
	return &out, nil
}

func (p *Platform) AddReaction(_ context.Context, _, messageID, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reactors[messageID] = append(p.reactors[messageID], p.Bot)
	return nil
}

func (p *Platform) RemoveReaction(_ context.Context, _, messageID, _, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removed = append(p.removed, messageID+"/"+userID)
	users := p.reactors[messageID][:0]
	for _, u := range p.reactors[messageID] {
		if u.ID != userID {
			users = append(users, u)
		}
	}
	p.reactors[messageID] = users
	return nil
}

func (p *Platform) Reactors(_ context.Context, _, messageID, _ string) ([]chat.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ReactorsErr != nil {
		return nil, p.ReactorsErr
	}
	return append([]chat.User(nil), p.reactors[messageID]...), nil
}

func (p *Platform) ResolveMember(_ context.Context, _, ref string) (*chat.Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(ref, "<@"), "!"), ">")
	if m, ok := p.members[id]; ok {
		out := *m
		out.RoleIDs = append([]string(nil), p.roles[id]...)
		return &out, nil
	}
	for _, m := range p.members {
		if strings.EqualFold(m.User.Username, ref) {
			out := *m
			return &out, nil
		}
	}
	return nil, chat.ErrNotFound
}

func (p *Platform) MemberRoles(_ context.Context, _, userID string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.members[userID]; !ok {
		return nil, chat.ErrNotFound
	}
	return append([]string(nil), p.roles[userID]...), nil
}

func (p *Platform) AddRole(_ context.Context, _, userID, roleID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.AddRoleErr != nil {
		return p.AddRoleErr
	}
	for _, r := range p.roles[userID] {
		if r == roleID {
			return nil
		}
	}
	p.roles[userID] = append(p.roles[userID], roleID)
	return nil
}

func (p *Platform) RemoveRole(_ context.Context, _, userID, roleID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.RemoveRoleErr != nil {
		return p.RemoveRoleErr
	}
	roles := p.roles[userID][:0]
	for _, r := range p.roles[userID] {
		if r != roleID {
			roles = append(roles, r)
		}
	}
	p.roles[userID] = roles
	return nil
}

func (p *Platform) OpenTicket(_ context.Context, req chat.TicketRequest) (*chat.Ticket, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.TicketErr != nil {
		return nil, p.TicketErr
	}
	p.tickets = append(p.tickets, req)
	threadID := "t-" + req.UserID
	p.nextID++
	m := req.Message
	m.ID = fmt.Sprintf("m%d", p.nextID)
	m.ChannelID = threadID
	p.sent = append(p.sent, Sent{ChannelID: threadID, MessageID: m.ID, Message: m})
	return &chat.Ticket{ThreadID: threadID, Message: &m}, nil
}

func (p *Platform) AwaitMessage(ctx context.Context, channelID string, match func(*chat.Message) bool) (*chat.Message, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case m := <-p.replies:
			if m.ChannelID == channelID && match(m) {
				return m, nil
			}
		}
	}
}

var _ chat.Platform = (*Platform)(nil)
