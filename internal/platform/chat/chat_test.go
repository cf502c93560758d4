package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser(t *testing.T) {
	u := User{ID: "42", Username: "alice"}
	assert.Equal(t, "<@42>", u.Mention())
	assert.Equal(t, "alice", u.Tag())
	assert.Equal(t, "7", User{ID: "7"}.Tag())
}

func TestMember_Roles(t *testing.T) {
	m := &Member{RoleIDs: []string{"a", "b"}}
	assert.True(t, m.HasRole("a"))
	assert.False(t, m.HasRole("c"))
	assert.True(t, m.HasAnyRole([]string{"x", "b"}))
	assert.False(t, m.HasAnyRole(nil))
}

func TestMessage(t *testing.T) {
	m := &Message{ID: "3", ChannelID: "2", GuildID: "1", Mentions: []string{"9"}}
	assert.Equal(t, "https://discord.com/channels/1/2/3", m.JumpURL())
	assert.True(t, m.Mentioned("9"))
	assert.False(t, m.Mentioned("8"))

	dm := &Message{ID: "3", ChannelID: "2"}
	assert.Equal(t, "https://discord.com/channels/@me/2/3", dm.JumpURL())
}

func TestEmbed_Field(t *testing.T) {
	e := &Embed{Fields: []EmbedField{{Name: "Hosted by:"}, {Name: "Ending:"}}}
	assert.Equal(t, 1, e.Field("Ending:"))
	assert.Equal(t, -1, e.Field("Ended:"))
}
