// internal/database/match.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/cardmage/internal/models"
	"github.com/jason-s-yu/cardmage/internal/rating"
)

// StoreMatchResult writes the match row and one row per seat in a single
// transaction, and rates the registered players the first time a match
// completes. A repeated call for the same match overwrites the rows only.
func (s *Store) StoreMatchResult(ctx context.Context, matchID uuid.UUID, r models.MatchResult) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var prev string
		err := tx.QueryRow(ctx, `SELECT status FROM matches WHERE id = $1 FOR UPDATE`, matchID).Scan(&prev)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		upsertMatch := `
			INSERT INTO matches (id, lobby_id, status, player_left, end_time)
			VALUES ($1, $2, 'completed', $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET lobby_id = $2, status = 'completed', player_left = $3, end_time = $4
		`
		if _, err := tx.Exec(ctx, upsertMatch, matchID, r.LobbyID, r.PlayerLeft, r.EndedAt); err != nil {
			return err
		}
		for seat, p := range r.Players {
			q := `
				INSERT INTO match_players (match_id, seat, player_id, name, did_win)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (match_id, seat)
				DO UPDATE SET player_id = $3, name = $4, did_win = $5
			`
			if _, err := tx.Exec(ctx, q, matchID, seat, p.ID, p.Name, r.Won(seat)); err != nil {
				return err
			}
		}
		if prev == "completed" {
			return nil
		}
		return rateTx(ctx, tx, r)
	})
	if err != nil {
		return fmt.Errorf("tx upsert match result: %w", err)
	}
	return nil
}

// rateTx updates the ratings of the seats held by registered players. Guests
// and ids missing from the players table are left out; fewer than two rated
// seats means nothing is rated.
func rateTx(ctx context.Context, tx pgx.Tx, r models.MatchResult) error {
	var (
		ids     []int32
		ratings []rating.Rating
		seats   []int
	)
	for seat, p := range r.Players {
		if p.IsGuest() {
			continue
		}
		var cur rating.Rating
		q := `SELECT rating, rating_rd, volatility FROM players WHERE id = $1 FOR UPDATE`
		err := tx.QueryRow(ctx, q, p.ID).Scan(&cur.Elo, &cur.RD, &cur.Volatility)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return err
		}
		ids = append(ids, p.ID)
		ratings = append(ratings, cur)
		seats = append(seats, seat)
	}
	if len(ratings) < 2 {
		return nil
	}

	all := rating.Scores(len(r.Players), r.Winners)
	scores := make([]float64, len(seats))
	for i, seat := range seats {
		scores[i] = all[seat]
	}
	updated, err := rating.Update(ratings, scores)
	if err != nil {
		return err
	}
	for i, id := range ids {
		q := `UPDATE players SET rating = $2, rating_rd = $3, volatility = $4 WHERE id = $1`
		if _, err := tx.Exec(ctx, q, id, updated[i].Elo, updated[i].RD, updated[i].Volatility); err != nil {
			return err
		}
	}
	return nil
}

// PlayerRating returns a registered player's current rating.
func (s *Store) PlayerRating(ctx context.Context, id int32) (rating.Rating, error) {
	var r rating.Rating
	q := `SELECT rating, rating_rd, volatility FROM players WHERE id = $1`
	err := s.pool.QueryRow(ctx, q, id).Scan(&r.Elo, &r.RD, &r.Volatility)
	if errors.Is(err, pgx.ErrNoRows) {
		return r, models.ErrUserNotFound
	}
	if err != nil {
		return r, fmt.Errorf("failed to read rating of player %d: %w", id, err)
	}
	return r, nil
}

// SaveActions inserts a batch of match actions in one transaction, creating
// in-progress match rows for matches seen for the first time.
func (s *Store) SaveActions(ctx context.Context, actions []models.MatchAction) error {
	if len(actions) == 0 {
		return nil
	}
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, a := range actions {
			if err := insertActionTx(ctx, tx, a); err != nil {
				return fmt.Errorf("action %d of match %s: %w", a.ActionIndex, a.MatchID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx save actions: %w", err)
	}
	return nil
}

func insertActionTx(ctx context.Context, tx pgx.Tx, a models.MatchAction) error {
	upsertMatch := `
		INSERT INTO matches (id, status)
		VALUES ($1, 'in_progress')
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, upsertMatch, a.MatchID); err != nil {
		return err
	}
	payload, err := json.Marshal(a.Payload)
	if err != nil {
		return err
	}
	q := `
		INSERT INTO match_actions (match_id, action_index, seat, actor_id, action_type, action_payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (match_id, action_index) DO NOTHING
	`
	_, err = tx.Exec(ctx, q, a.MatchID, a.ActionIndex, a.Seat, a.ActorID, a.ActionType, payload, time.UnixMilli(a.Timestamp))
	return err
}

// MarkMatchAbandoned flags a match that never reported a result.
func (s *Store) MarkMatchAbandoned(ctx context.Context, matchID uuid.UUID) (bool, error) {
	q := `
		UPDATE matches
		SET status = 'abandoned', end_time = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`
	tag, err := s.pool.Exec(ctx, q, matchID)
	if err != nil {
		return false, fmt.Errorf("failed to mark match %s abandoned: %w", matchID, err)
	}
	return tag.RowsAffected() > 0, nil
}
