package discord

import (
	"github.com/bwmarrin/discordgo"

	"giveaway-bot/internal/platform/chat"
)

func fromUser(u *discordgo.User) chat.User {
	if u == nil {
		return chat.User{}
	}
	return chat.User{ID: u.ID, Username: u.Username, Bot: u.Bot}
}

func fromChannel(ch *discordgo.Channel) *chat.Channel {
	return &chat.Channel{
		ID:       ch.ID,
		GuildID:  ch.GuildID,
		Name:     ch.Name,
		ParentID: ch.ParentID,
		Thread:   ch.IsThread(),
	}
}

func fromMessage(m *discordgo.Message) *chat.Message {
	out := &chat.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Author:    fromUser(m.Author),
		Content:   m.Content,
	}
	for _, e := range m.Embeds {
		out.Embeds = append(out.Embeds, fromEmbed(e))
	}
	for _, u := range m.Mentions {
		out.Mentions = append(out.Mentions, u.ID)
	}
	if m.MessageReference != nil {
		out.Reference = &chat.MessageRef{ChannelID: m.MessageReference.ChannelID, MessageID: m.MessageReference.MessageID}
	}
	return out
}

func fromEmbed(e *discordgo.MessageEmbed) chat.Embed {
	out := chat.Embed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, chat.EmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if e.Footer != nil {
		out.Footer = e.Footer.Text
	}
	return out
}

func toEmbed(e chat.Embed) *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if e.Footer != "" {
		out.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	return out
}

func toEmbeds(embeds []chat.Embed) []*discordgo.MessageEmbed {
	out := make([]*discordgo.MessageEmbed, 0, len(embeds))
	for _, e := range embeds {
		out = append(out, toEmbed(e))
	}
	return out
}

func toMessageSend(msg chat.Message) *discordgo.MessageSend {
	send := &discordgo.MessageSend{
		Content: msg.Content,
		Embeds:  toEmbeds(msg.Embeds),
	}
	if msg.Reference != nil {
		send.Reference = &discordgo.MessageReference{
			ChannelID: msg.Reference.ChannelID,
			MessageID: msg.Reference.MessageID,
		}
	}
	return send
}
