// Package templates renders giveaway state into chat embeds. Every function
// here is pure.
package templates

import (
	"errors"
	"fmt"
	"strings"

	apperrors "giveaway-bot/internal/common/errors"
	"giveaway-bot/internal/features/giveaway/models"
	"giveaway-bot/internal/platform/chat"
)

const (
	ColorGreen    = 0x2ecc71
	ColorRed      = 0xe74c3c
	ColorYellow   = 0xf1c40f
	ColorBlue     = 0x3498db
	ColorDarkBlue = 0x206694

	FieldEnding = "Ending:"
	FieldEnded  = "Ended:"

	MaxTitleLength = 256
)

var ErrEmptyAnnouncement = errors.New("announcement needs a title or a description")

func Error(message, jumpURL string) chat.Embed {
	if jumpURL != "" {
		message += fmt.Sprintf("\n[Jump](%s)", jumpURL)
	}
	return chat.Embed{Title: "Error", Description: message, Color: ColorRed}
}

func Warning(message string) chat.Embed {
	return chat.Embed{Title: "Warning", Description: message, Color: ColorYellow}
}

func Info(message string) chat.Embed {
	return chat.Embed{Title: "Info", Description: message, Color: ColorYellow}
}

func holderField(h models.Holder) chat.EmbedField {
	return chat.EmbedField{Name: h.Label(), Value: h.Contact(), Inline: true}
}

// RunningGiveaway is the announcement entrants react to.
func RunningGiveaway(ending int64, winners int, holder models.Holder, title, description string) (chat.Embed, error) {
	if title == "" && description == "" {
		return chat.Embed{}, ErrEmptyAnnouncement
	}

	footer := fmt.Sprintf("%d winner", winners)
	if winners > 1 {
		footer += "s"
	}
	// mentions don't render in footers
	if holder.Tag != "" && holder.Display() != "" {
		footer += " | " + holder.Display()
	}

	return chat.Embed{
		Title:       title,
		Description: description,
		Color:       ColorGreen,
		Fields: []chat.EmbedField{
			holderField(holder),
			{Name: FieldEnding, Value: fmt.Sprintf("<t:%d:R> (<t:%d>)", ending, ending), Inline: true},
		},
		Footer: footer,
	}, nil
}

// MarkEnded renames the Ending field and clears the colour.
func MarkEnded(e chat.Embed) chat.Embed {
	out := e
	out.Fields = append([]chat.EmbedField(nil), e.Fields...)
	if i := out.Field(FieldEnding); i >= 0 {
		out.Fields[i].Name = FieldEnded
	}
	out.Color = 0
	return out
}

type ResultParams struct {
	WinnerMentions []string
	Title          string
	Description    string
	Holder         models.Holder
	JumpURL        string
	// MentionWinners puts the winners in the message content so they are pinged.
	MentionWinners bool
	Reroll         bool
}

func Result(p ResultParams) chat.Message {
	title, color := "Giveaway result", ColorBlue
	if p.Reroll {
		title, color = "Giveaway was rerolled", ColorDarkBlue
	}

	var desc strings.Builder
	if p.Title != "" {
		desc.WriteString("**" + p.Title + "**")
	}
	if p.Description != "" {
		desc.WriteString("\n" + p.Description)
	}

	embed := chat.Embed{
		Title:       title,
		Description: desc.String(),
		Color:       color,
		Fields: []chat.EmbedField{
			holderField(p.Holder),
			{Name: "Winners:", Value: strings.Join(p.WinnerMentions, "\n")},
			{Name: "Jump", Value: fmt.Sprintf("[to giveaway](%s)", p.JumpURL)},
		},
		Footer: p.Holder.Display(),
	}

	msg := chat.Message{Embeds: []chat.Embed{embed}}
	if p.MentionWinners {
		msg.Content = strings.Join(p.WinnerMentions, " ")
	}
	return msg
}

func NoWinner(jumpURL, message string) chat.Embed {
	return chat.Embed{
		Title:       "No winner found!",
		Description: message + fmt.Sprintf("\n[Jump to giveaway](%s)", jumpURL),
	}
}

const embedDeletedNote = "**Warning:**\nEmbed on giveaway was deleted"

// NoWinnerEmbedDeleted is posted when the announcement lost its embed.
func NoWinnerEmbedDeleted(jumpURL string) chat.Embed {
	return NoWinner(jumpURL, embedDeletedNote)
}

func WinnerGuide(prize, description, jumpURL string) chat.Embed {
	if prize == "" && description != "" {
		description = "**" + description + "**"
	}
	if description != "" {
		description += "\n\n"
	}
	return chat.Embed{
		Title: "You won: " + prize,
		Description: description +
			"**Please tell us your ingame name and at what times you are available to trade**\n" +
			fmt.Sprintf("[Jump to giveaway](%s)", jumpURL),
		Color: ColorBlue,
	}
}

func CommandUsed(content, authorID, authorTag, channelID, jumpURL string) chat.Embed {
	return chat.Embed{
		Title:       "Command used",
		Description: "```\n" + content + "```",
		Color:       ColorBlue,
		Fields: []chat.EmbedField{
			{Name: "author", Value: authorID + " | " + authorTag, Inline: true},
			{Name: "Channel", Value: fmt.Sprintf("<#%s>\n%s", channelID, jumpURL)},
		},
	}
}

func ReactionRemoved(messageLink, userID string) chat.Embed {
	return chat.Embed{
		Title:       "Reaction removed",
		Color:       ColorRed,
		Description: fmt.Sprintf("Removed reaction from [message](%s) by <@%s>", messageLink, userID),
	}
}

// ContactStaffTitle marks the message members react to for a modmail ticket.
const ContactStaffTitle = "Contact staff"

func ContactStaff(emoji string) chat.Embed {
	return chat.Embed{
		Title:       ContactStaffTitle,
		Description: fmt.Sprintf("React with %s below to open a ticket.", emoji),
		Color:       ColorGreen,
	}
}

// ModmailGreeting opens a modmail ticket, pinging the member and staff.
func ModmailGreeting(userID string, modRoleIDs []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<@%s>", userID)
	for _, id := range modRoleIDs {
		fmt.Fprintf(&b, " <@&%s>", id)
	}
	b.WriteString("\nDescribe your issue here")
	return b.String()
}

// GiveawayMissing is posted in the origin channel when the announcement is gone.
func GiveawayMissing(ownerTag, recordJSON string) chat.Embed {
	return Error(
		"Hmm I can't seem to find a giveaway that's supposed to end at this time\n"+
			fmt.Sprintf("Please report to `%s` if you believe this is the bot's fault.\n\n", ownerTag)+
			"Debug info:\n```json\n"+recordJSON+"```",
		"",
	)
}

// OperatorReport carries enough context to recover a giveaway by hand.
func OperatorReport(reportID, summary, detail string) chat.Embed {
	const limit = 4000
	body := summary
	if detail != "" {
		body += "\n```\n" + detail + "```"
	}
	if len(body) > limit {
		body = body[:limit-3] + "```"
	}
	return chat.Embed{
		Title:       "Error",
		Description: body,
		Color:       ColorRed,
		Footer:      "report " + reportID,
	}
}

// FromError maps an error kind to what the invoking user sees.
func FromError(err error) chat.Embed {
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.IsInternal() {
		return Error("Internal error, report submitted.", "")
	}
	switch appErr.Code {
	case apperrors.ErrCodeForbidden:
		return Error("You don't have permission to use this command", "")
	case apperrors.ErrCodeMemberNotFound:
		return Warning(appErr.Message)
	}
	return Error(appErr.Message, "")
}
