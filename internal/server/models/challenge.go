package models

import "time"

// Challenge is a single CTF task. Flag is stored server-side only and must
// never be serialized toward participants.
type Challenge struct {
	ID          string
	Title       string
	Description string
	Category    string
	Flag        string
	Points      int
	Hidden      bool

	// AvailableFrom gates challenge (and attachment) visibility for
	// non-staff users until the given time. Nil means always available.
	AvailableFrom *time.Time

	CreatedBy string
	CreatedAt time.Time
}

// Available reports whether the challenge is open to participants at now.
func (c *Challenge) Available(now time.Time) bool {
	if c.Hidden {
		return false
	}
	return c.AvailableFrom == nil || !c.AvailableFrom.After(now)
}

// Solve records a team's accepted flag submission.
type Solve struct {
	ID          string
	ChallengeID string
	UserID      string
	Points      int
	CreatedAt   time.Time
}

// ScoreboardEntry is one aggregated scoreboard row.
type ScoreboardEntry struct {
	TeamName  string
	Points    int
	LastSolve time.Time
}
