package models

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	hostedByPrefix = "Hosted by: "
	contactFormat  = "Contact %s to claim your prize"
)

// Holder is who winners contact to redeem the prize.
type Holder struct {
	Mention string `json:"mention"`
	Tag     string `json:"tag"`
	String  string `json:"string"`
}

// NewContactHolder builds a holder for an explicitly named item holder.
func NewContactHolder(mention, tag string) Holder {
	return Holder{Mention: mention, Tag: tag, String: fmt.Sprintf(contactFormat, tag)}
}

// NewHostHolder builds a holder that falls back to the command author.
func NewHostHolder(mention, tag string) Holder {
	return Holder{Mention: mention, Tag: tag, String: hostedByPrefix + tag}
}

func (h Holder) IsHost() bool {
	return strings.HasPrefix(h.String, hostedByPrefix)
}

// Label is the embed field name the holder is shown under.
func (h Holder) Label() string {
	if h.IsHost() {
		return "Hosted by:"
	}
	return "Item Holder:"
}

// Contact prefers the mention and falls back to the tag.
func (h Holder) Contact() string {
	if h.Mention != "" {
		return h.Mention
	}
	return h.Tag
}

var mentionID = regexp.MustCompile(`^<@!?(\d+)>$`)

// UserID extracts the user id from the stored mention, or "" if there is none.
func (h Holder) UserID() string {
	m := mentionID.FindStringSubmatch(h.Mention)
	if m == nil {
		return ""
	}
	return m[1]
}

func (h Holder) Display() string {
	return h.String
}
