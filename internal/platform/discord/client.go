package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"giveaway-bot/internal/common/logger"
	"giveaway-bot/internal/platform/chat"
)

const (
	// one week, the longest auto-archive discord allows
	ticketAutoArchive = 10080
	reactorPageSize   = 100
)

var mentionPattern = regexp.MustCompile(`^<@!?(\d+)>$`)
var snowflakePattern = regexp.MustCompile(`^\d{15,21}$`)

type waiter struct {
	channelID string
	match     func(*chat.Message) bool
	ch        chan *chat.Message
}

// Client implements chat.Platform over a discordgo session.
type Client struct {
	session *discordgo.Session
	log     zerolog.Logger

	mu      sync.Mutex
	waiters map[uint64]*waiter
	nextID  uint64

	handlersMu sync.RWMutex
	onMessage  []func(*chat.Message)
	onReaction []func(chat.Reaction)
}

var _ chat.Platform = (*Client)(nil)

// New creates a client for a bot token. The gateway connection is opened by Open.
func New(token string) (*Client, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	c := &Client{
		session: dg,
		log:     logger.Component("discord"),
		waiters: make(map[uint64]*waiter),
	}
	dg.AddHandler(c.handleMessageCreate)
	dg.AddHandler(c.handleReactionAdd)
	dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		c.log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("Discord session ready")
	})
	return c, nil
}

func (c *Client) Open() error {
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.session.Close()
}

// OnMessage registers fn for every message the bot sees.
func (c *Client) OnMessage(fn func(*chat.Message)) {
	c.handlersMu.Lock()
	c.onMessage = append(c.onMessage, fn)
	c.handlersMu.Unlock()
}

// OnReaction registers fn for every reaction added in a guild.
func (c *Client) OnReaction(fn func(chat.Reaction)) {
	c.handlersMu.Lock()
	c.onReaction = append(c.onReaction, fn)
	c.handlersMu.Unlock()
}

func (c *Client) BotUser() chat.User {
	if c.session.State == nil || c.session.State.User == nil {
		return chat.User{}
	}
	return fromUser(c.session.State.User)
}

// classify maps REST status codes onto chat sentinels.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w: %v", op, chat.ErrNotFound, err)
		case http.StatusForbidden:
			return fmt.Errorf("%s: %w: %v", op, chat.ErrForbidden, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (c *Client) SendMessage(ctx context.Context, channelID string, msg chat.Message) (*chat.Message, error) {
	sent, err := c.session.ChannelMessageSendComplex(channelID, toMessageSend(msg), discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify("send message", err)
	}
	return fromMessage(sent), nil
}

func (c *Client) EditMessage(ctx context.Context, channelID, messageID string, msg chat.Message) (*chat.Message, error) {
	embeds := toEmbeds(msg.Embeds)
	edit := &discordgo.MessageEdit{
		ID:      messageID,
		Channel: channelID,
		Embeds:  &embeds,
	}
	if msg.Content != "" {
		content := msg.Content
		edit.Content = &content
	}
	edited, err := c.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify("edit message", err)
	}
	return fromMessage(edited), nil
}

func (c *Client) SendDirect(ctx context.Context, userID string, msg chat.Message) (*chat.Message, error) {
	ch, err := c.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify("open direct channel", err)
	}
	return c.SendMessage(ctx, ch.ID, msg)
}

func (c *Client) FetchChannel(ctx context.Context, channelID string) (*chat.Channel, error) {
	if c.session.State != nil {
		if ch, err := c.session.State.Channel(channelID); err == nil {
			return fromChannel(ch), nil
		}
	}
	ch, err := c.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify("fetch channel", err)
	}
	return fromChannel(ch), nil
}

func (c *Client) FetchMessage(ctx context.Context, channelID, messageID string) (*chat.Message, error) {
	m, err := c.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify("fetch message", err)
	}
	return fromMessage(m), nil
}

func (c *Client) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	return classify("add reaction", c.session.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx)))
}

func (c *Client) RemoveReaction(ctx context.Context, channelID, messageID, emoji, userID string) error {
	return classify("remove reaction",
		c.session.MessageReactionRemove(channelID, messageID, emoji, userID, discordgo.WithContext(ctx)))
}

// Reactors pages through every user who reacted with emoji.
func (c *Client) Reactors(ctx context.Context, channelID, messageID, emoji string) ([]chat.User, error) {
	var (
		users []chat.User
		after string
	)
	for {
		page, err := c.session.MessageReactions(channelID, messageID, emoji, reactorPageSize, "", after, discordgo.WithContext(ctx))
		if err != nil {
			return nil, classify("list reactions", err)
		}
		for _, u := range page {
			users = append(users, fromUser(u))
		}
		if len(page) < reactorPageSize {
			return users, nil
		}
		after = page[len(page)-1].ID
	}
}

func (c *Client) ResolveMember(ctx context.Context, guildID, ref string) (*chat.Member, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("resolve member: empty reference: %w", chat.ErrNotFound)
	}
	if m := mentionPattern.FindStringSubmatch(ref); m != nil {
		ref = m[1]
	}

	var member *discordgo.Member
	if snowflakePattern.MatchString(ref) {
		m, err := c.session.GuildMember(guildID, ref, discordgo.WithContext(ctx))
		if err != nil {
			return nil, classify("fetch member", err)
		}
		member = m
	} else {
		found, err := c.session.GuildMembersSearch(guildID, ref, 1, discordgo.WithContext(ctx))
		if err != nil {
			return nil, classify("search member", err)
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("resolve member %q: %w", ref, chat.ErrNotFound)
		}
		member = found[0]
	}
	return c.toMember(ctx, guildID, member)
}

func (c *Client) toMember(ctx context.Context, guildID string, m *discordgo.Member) (*chat.Member, error) {
	out := &chat.Member{
		User:    fromUser(m.User),
		GuildID: guildID,
		RoleIDs: append([]string(nil), m.Roles...),
	}

	guild, err := c.guild(ctx, guildID)
	if err != nil {
		return nil, err
	}
	out.Owner = guild.OwnerID == out.ID
	for _, role := range guild.Roles {
		if role.Permissions&discordgo.PermissionAdministrator != 0 && out.HasRole(role.ID) {
			out.Administrator = true
			break
		}
	}
	return out, nil
}

func (c *Client) guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if c.session.State != nil {
		if g, err := c.session.State.Guild(guildID); err == nil && len(g.Roles) > 0 {
			return g, nil
		}
	}
	g, err := c.session.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify("fetch guild", err)
	}
	return g, nil
}

func (c *Client) MemberRoles(ctx context.Context, guildID, userID string) ([]string, error) {
	m, err := c.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify("fetch member roles", err)
	}
	return m.Roles, nil
}

func (c *Client) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	return classify("add role", c.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx)))
}

func (c *Client) RemoveRole(ctx context.Context, guildID, userID, roleID string) error {
	return classify("remove role", c.session.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx)))
}
