package repo

import (
	"context"
	"strings"

	errx "github.com/hospitalbot-poc/server/internal/core/error"
	logx "github.com/hospitalbot-poc/server/pkg/logger"
)

// historySentinel terminates every history string. Callers append the
// current utterance after it, so it is emitted even for empty histories.
const historySentinel = ", "

// RecordTurn appends one transcript row for the session with a
// server-assigned timestamp. Rows are never mutated or deleted.
func (s *Store) RecordTurn(ctx context.Context, sessionID, requestBlob, utterance, responseText string) error {
	const insert = `
        INSERT INTO transcript (session_id, request, query, response)
        VALUES (?, ?, ?, ?)`

	if _, err := s.db.ExecContext(ctx, insert, sessionID, requestBlob, utterance, responseText); err != nil {
		logx.Error().Err(err).Str("sessionID", sessionID).Msg("failed to record turn")
		return errx.WrapStore(err)
	}
	return nil
}

// History returns all prior user utterances for the session in ascending
// timestamp order, space-joined, with a single trailing ", " sentinel.
// A session with no rows yields just the sentinel, never an empty string.
// Read-only; safe to call repeatedly.
func (s *Store) History(ctx context.Context, sessionID string) (string, error) {
	const query = `
        SELECT query
        FROM transcript
        WHERE session_id = ?
        ORDER BY timestamp ASC, rowid ASC`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		logx.Error().Err(err).Str("sessionID", sessionID).Msg("failed to load session history")
		return "", errx.WrapStore(err)
	}
	defer rows.Close()

	var utterances []string
	for rows.Next() {
		var utterance string
		if err := rows.Scan(&utterance); err != nil {
			return "", errx.WrapStore(err)
		}
		utterances = append(utterances, utterance)
	}
	if err := rows.Err(); err != nil {
		return "", errx.WrapStore(err)
	}

	if len(utterances) == 0 {
		logx.Warn().Str("sessionID", sessionID).Msg("no history rows for session")
	}
	return strings.Join(utterances, " ") + historySentinel, nil
}
