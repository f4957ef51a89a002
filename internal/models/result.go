// internal/models/result.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchResult is the terminal outcome of a match handed to the persistence collaborator.
type MatchResult struct {
	MatchID    uuid.UUID  `json:"match_id"`
	LobbyID    int32      `json:"lobby_id"`
	Players    []Identity `json:"players"`
	Winners    []int      `json:"winners"` // seat indices
	PlayerLeft bool       `json:"player_left"`
	EndedAt    time.Time  `json:"ended_at"`
}

// Won reports whether the given seat is among the winners.
func (r MatchResult) Won(seat int) bool {
	for _, w := range r.Winners {
		if w == seat {
			return true
		}
	}
	return false
}

// MatchAction captures one applied in-match command for the historian.
type MatchAction struct {
	MatchID     uuid.UUID              `json:"match_id"`
	ActionIndex int                    `json:"action_index"`
	Seat        int                    `json:"seat"`
	ActorID     int32                  `json:"actor_id"`
	ActionType  string                 `json:"action_type"`
	Payload     map[string]interface{} `json:"action_payload"`
	Timestamp   int64                  `json:"timestamp"`
}
