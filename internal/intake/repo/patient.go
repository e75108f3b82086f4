package repo

import (
	"context"

	errx "github.com/hospitalbot-poc/server/internal/core/error"
	logx "github.com/hospitalbot-poc/server/pkg/logger"
)

// Patient is a read-only registry record looked up on demand.
type Patient struct {
	MRN       string
	FirstName string
	LastName  string
}

// PatientByMRN looks up a patient by exact medical record number. A miss is
// the errx.ErrNotFound kind, not a fault.
func (s *Store) PatientByMRN(ctx context.Context, mrn string) (*Patient, error) {
	const query = `
        SELECT mrn, firstname, lastname
        FROM patient_info
        WHERE mrn = ?`

	var p Patient
	err := s.db.QueryRowContext(ctx, query, mrn).Scan(&p.MRN, &p.FirstName, &p.LastName)
	if err != nil {
		return nil, errx.WrapStore(err)
	}
	return &p, nil
}

// AddPatient registers a patient record. The registry is owned by an
// external system in production; this is used for seeding and tests.
func (s *Store) AddPatient(ctx context.Context, p Patient) error {
	const insert = `
        INSERT INTO patient_info (mrn, firstname, lastname)
        VALUES (?, ?, ?)`

	if _, err := s.db.ExecContext(ctx, insert, p.MRN, p.FirstName, p.LastName); err != nil {
		logx.Error().Err(err).Str("mrn", p.MRN).Msg("failed to add patient")
		return errx.WrapStore(err)
	}
	return nil
}
