package repo

import (
	"context"
	"database/sql"

	errx "github.com/hospitalbot-poc/server/internal/core/error"
	"github.com/hospitalbot-poc/server/internal/intake/model"
	logx "github.com/hospitalbot-poc/server/pkg/logger"
)

// entityUpsert folds one entity value into the running record in a single
// statement, closing the read-check-then-write race of a separate existence
// probe. Empty values arrive as NULL and the CASE arms keep the merge
// null-safe: a NULL on either side never produces a stray ", " separator.
const entityUpsert = `
    INSERT INTO entity_record (session_id, entity, detail, entity_original, detail_original)
    VALUES (?, ?, ?, ?, ?)
    ON CONFLICT(session_id, entity) DO UPDATE SET
        detail = CASE
            WHEN excluded.detail IS NULL THEN entity_record.detail
            WHEN entity_record.detail IS NULL THEN excluded.detail
            ELSE entity_record.detail || ', ' || excluded.detail
        END,
        detail_original = CASE
            WHEN excluded.detail_original IS NULL THEN entity_record.detail_original
            WHEN entity_record.detail_original IS NULL THEN excluded.detail_original
            ELSE entity_record.detail_original || ', ' || excluded.detail_original
        END`

// UpsertEntities folds the turn's extracted parameters into the per-session
// entity records. Each entity is its own atomic upsert; a failing entity is
// logged and reported but does not roll back the others.
func (s *Store) UpsertEntities(ctx context.Context, sessionID string, params model.Parameters) error {
	var firstErr error
	for name := range params {
		value := params.First(name)

		detail := sql.NullString{String: value, Valid: value != ""}
		// entity_original keeps the observed transformed-name convention;
		// downstream consumers read this format.
		_, err := s.db.ExecContext(ctx, entityUpsert,
			sessionID, name, detail, name+".original", detail)
		if err != nil {
			logx.Error().Err(err).
				Str("sessionID", sessionID).
				Str("entity", name).
				Msg("failed to upsert entity")
			if firstErr == nil {
				firstErr = errx.WrapStore(err)
			}
			continue
		}
		logx.Debug().Str("sessionID", sessionID).Str("entity", name).Msg("entity upserted")
	}
	return firstErr
}

// EntityRecord is one live merged record for a (session, entity) pair.
type EntityRecord struct {
	SessionID      string
	Entity         string
	Detail         string
	EntityOriginal string
	DetailOriginal string
}

// Entity returns the live record for the pair, or the not-found kind when
// the entity has not been sighted in the session.
func (s *Store) Entity(ctx context.Context, sessionID, entity string) (*EntityRecord, error) {
	const query = `
        SELECT session_id, entity, COALESCE(detail, ''), entity_original, COALESCE(detail_original, '')
        FROM entity_record
        WHERE session_id = ? AND entity = ?`

	var rec EntityRecord
	err := s.db.QueryRowContext(ctx, query, sessionID, entity).Scan(
		&rec.SessionID, &rec.Entity, &rec.Detail, &rec.EntityOriginal, &rec.DetailOriginal)
	if err != nil {
		return nil, errx.WrapStore(err)
	}
	return &rec, nil
}

// EntityCount reports how many live records a session holds for the entity.
// The merge invariant keeps this at most 1.
func (s *Store) EntityCount(ctx context.Context, sessionID, entity string) (int, error) {
	const query = `
        SELECT COUNT(1)
        FROM entity_record
        WHERE session_id = ? AND entity = ?`

	var n int
	if err := s.db.QueryRowContext(ctx, query, sessionID, entity).Scan(&n); err != nil {
		return 0, errx.WrapStore(err)
	}
	return n, nil
}
