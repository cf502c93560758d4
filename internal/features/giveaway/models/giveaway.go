package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidPath         = errors.New("giveaway path must be guild/channel/message")
	ErrInvalidWinnersCount = errors.New("winners count must be greater than 0")
	ErrMissingID           = errors.New("giveaway id is empty")
)

// Outcome is how a completion attempt finished. The first four are terminal
// and are stored on the archived record.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeNoWinner  Outcome = "no_winner"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeError     Outcome = "error"

	OutcomeDuplicate    Outcome = "duplicate"     // another task already waits for this ending
	OutcomeSuperseded   Outcome = "superseded"    // a newer ending replaced this task while it waited
	OutcomeAborted      Outcome = "aborted"       // engine shut down during the wait
	OutcomeAlreadyEnded Outcome = "already_ended" // record left the active store meanwhile
	OutcomeRetry        Outcome = "retry"         // store unavailable, left for the next sweep
)

// IsTerminal reports whether the outcome archived the giveaway.
func (o Outcome) IsTerminal() bool {
	switch o {
	case OutcomeCompleted, OutcomeNoWinner, OutcomeNotFound, OutcomeError:
		return true
	}
	return false
}

// Giveaway is the persisted record of a giveaway, keyed by the id of its
// announcement message.
type Giveaway struct {
	ID        string `json:"_id"`
	Ending    int64  `json:"ending"` // unix seconds
	Winners   int    `json:"winners"`
	Holder    Holder `json:"holder"`
	Path      string `json:"path"` // guild/channel/message
	Prize     string `json:"prize,omitempty"`
	Row       string `json:"row,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
	HostID    string `json:"host_id,omitempty"`

	// Archive only
	Outcome   Outcome  `json:"outcome,omitempty"`
	WinnerIDs []string `json:"winner_ids,omitempty"`
	EndedAt   int64    `json:"ended_at,omitempty"`
}

// Location identifies the announcement message on the chat platform.
type Location struct {
	GuildID   string
	ChannelID string
	MessageID string
}

func (l Location) Path() string {
	return fmt.Sprintf("%s/%s/%s", l.GuildID, l.ChannelID, l.MessageID)
}

func (l Location) JumpURL() string {
	return JumpURL(l.Path())
}

// JumpURL returns a link to the message at path.
func JumpURL(path string) string {
	return "https://discord.com/channels/" + path
}

// ParsePath splits a guild/channel/message path.
func ParsePath(path string) (Location, error) {
	parts := strings.Split(path, "/")
	if len(parts) != 3 {
		return Location{}, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	for _, p := range parts {
		if p == "" {
			return Location{}, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return Location{GuildID: parts[0], ChannelID: parts[1], MessageID: parts[2]}, nil
}

func (g *Giveaway) Location() (Location, error) {
	return ParsePath(g.Path)
}

func (g *Giveaway) JumpURL() string {
	return JumpURL(g.Path)
}

func (g *Giveaway) EndingTime() time.Time {
	return time.Unix(g.Ending, 0)
}

// Validate checks the fields every stored record must carry.
func (g *Giveaway) Validate() error {
	if g.ID == "" {
		return ErrMissingID
	}
	if g.Winners < 1 {
		return ErrInvalidWinnersCount
	}
	if _, err := g.Location(); err != nil {
		return err
	}
	return nil
}

// Clone returns a deep copy.
func (g *Giveaway) Clone() *Giveaway {
	c := *g
	if g.WinnerIDs != nil {
		c.WinnerIDs = append([]string(nil), g.WinnerIDs...)
	}
	return &c
}

// Archived returns the copy written to the archive store for a terminal outcome.
func (g *Giveaway) Archived(outcome Outcome, winnerIDs []string, endedAt time.Time) *Giveaway {
	c := g.Clone()
	c.Outcome = outcome
	c.WinnerIDs = winnerIDs
	c.EndedAt = endedAt.Unix()
	return c
}

// Disqualification is a timed grant of the disqualified role, keyed by member id.
type Disqualification struct {
	ID      string `json:"_id"`
	Ending  int64  `json:"ending"`
	GuildID string `json:"guild_id,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

func (d *Disqualification) Expired(now time.Time) bool {
	return d.Ending < now.Unix()
}
