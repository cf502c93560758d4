// Package chat is the bot's view of the chat platform. The engine only talks
// to Platform; internal/platform/discord implements it over discordgo.
package chat

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("chat: not found")
	ErrForbidden = errors.New("chat: forbidden")
)

// User is a platform account.
type User struct {
	ID       string
	Username string
	Bot      bool
}

func (u User) Mention() string {
	return fmt.Sprintf("<@%s>", u.ID)
}

// Tag is the display form used in footers and logs, where mentions don't render.
func (u User) Tag() string {
	if u.Username == "" {
		return u.ID
	}
	return u.Username
}

// Member is a User inside a guild.
type Member struct {
	User
	GuildID       string
	RoleIDs       []string
	Owner         bool
	Administrator bool
}

func (m *Member) HasRole(roleID string) bool {
	for _, id := range m.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the member holds one of roleIDs.
func (m *Member) HasAnyRole(roleIDs []string) bool {
	for _, id := range roleIDs {
		if m.HasRole(id) {
			return true
		}
	}
	return false
}

type Channel struct {
	ID       string
	GuildID  string
	Name     string
	ParentID string
	Thread   bool
}

func (c *Channel) Mention() string {
	return fmt.Sprintf("<#%s>", c.ID)
}

type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is the structured part of a message.
type Embed struct {
	Title       string
	Description string
	Color       int // 0 leaves the colour unset
	Fields      []EmbedField
	Footer      string
}

// Field returns the index of the field called name, or -1.
func (e *Embed) Field(name string) int {
	for i, f := range e.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

type MessageRef struct {
	ChannelID string
	MessageID string
}

// Message is both what the bot sends and what it reads back.
type Message struct {
	ID        string
	ChannelID string
	GuildID   string
	Author    User
	Content   string
	Embeds    []Embed
	Mentions  []string // user ids
	Reference *MessageRef
}

func (m *Message) JumpURL() string {
	guild := m.GuildID
	if guild == "" {
		guild = "@me"
	}
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guild, m.ChannelID, m.ID)
}

// Mentioned reports whether the message mentions userID.
func (m *Message) Mentioned(userID string) bool {
	for _, id := range m.Mentions {
		if id == userID {
			return true
		}
	}
	return false
}

// TicketRequest opens or reuses a private thread for one user.
type TicketRequest struct {
	ParentID string
	Name     string
	// Existing threads whose name contains UserID are reused.
	UserID  string
	Members []string
	Message Message
}

type Ticket struct {
	ThreadID string
	Message  *Message
	Reused   bool
}

// Platform is everything the bot needs from the chat service.
type Platform interface {
	BotUser() User

	SendMessage(ctx context.Context, channelID string, msg Message) (*Message, error)
	EditMessage(ctx context.Context, channelID, messageID string, msg Message) (*Message, error)
	SendDirect(ctx context.Context, userID string, msg Message) (*Message, error)
	FetchChannel(ctx context.Context, channelID string) (*Channel, error)
	FetchMessage(ctx context.Context, channelID, messageID string) (*Message, error)

	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
	RemoveReaction(ctx context.Context, channelID, messageID, emoji, userID string) error
	Reactors(ctx context.Context, channelID, messageID, emoji string) ([]User, error)

	// ResolveMember accepts an id, a mention or a username.
	ResolveMember(ctx context.Context, guildID, ref string) (*Member, error)
	MemberRoles(ctx context.Context, guildID, userID string) ([]string, error)
	AddRole(ctx context.Context, guildID, userID, roleID string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID string) error

	OpenTicket(ctx context.Context, req TicketRequest) (*Ticket, error)
	// AwaitMessage blocks until a message in channelID satisfies match or ctx ends.
	AwaitMessage(ctx context.Context, channelID string, match func(*Message) bool) (*Message, error)
}

// Reaction is a reaction-add event.
type Reaction struct {
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	Emoji     string
	// RoleIDs of the reacting member when the event carried them.
	RoleIDs []string
}
