package db

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"autism-screening/internal/schemas"
	"autism-screening/internal/screening"
)

var (
	ErrNotFound = errors.New("screening not found")
	// ErrNotPending is returned when a worker tries to finish a screening
	// that is already complete or failed.
	ErrNotPending = errors.New("screening is not pending")
)

type Store struct {
	DB *sqlx.DB
}

func NewStore(dbx *sqlx.DB) *Store {
	return &Store{DB: dbx}
}

// CreateComplete records a screening that was aggregated synchronously.
func (s *Store) CreateComplete(ctx context.Context, id, source string, request any, report screening.ReportDocument) error {
	req, err := json.Marshal(request)
	if err != nil {
		return err
	}
	rep, err := json.Marshal(report)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx,
		`insert into screenings(id, status, source, request, report, label, confidence) values($1,$2,$3,$4,$5,$6,$7)`,
		id, string(schemas.StatusComplete), source, req, rep, string(report.Label), report.Confidence)
	return errors.Wrap(err, "insert screening")
}

// CreatePending records a screening waiting for the media worker.
func (s *Store) CreatePending(ctx context.Context, id string, request any) error {
	req, err := json.Marshal(request)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx,
		`insert into screenings(id, status, source, request) values($1,$2,$3,$4)`,
		id, string(schemas.StatusPending), SourceMedia, req)
	return errors.Wrap(err, "insert screening")
}

func (s *Store) Get(ctx context.Context, id string) (Screening, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Screening{}, ErrNotFound
	}
	var row Screening
	err := s.DB.GetContext(ctx, &row, `select * from screenings where id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Screening{}, ErrNotFound
	}
	if err != nil {
		return Screening{}, errors.Wrap(err, "select screening")
	}
	return row, nil
}

// Complete stores the report of a pending screening.
func (s *Store) Complete(ctx context.Context, id string, report screening.ReportDocument) error {
	rep, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return s.finish(ctx, id, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`update screenings set status=$2, report=$3, label=$4, confidence=$5, error=null, updated_at=now() where id=$1`,
			id, string(schemas.StatusComplete), rep, string(report.Label), report.Confidence)
		return err
	})
}

// Fail marks a pending screening as failed with msg.
func (s *Store) Fail(ctx context.Context, id, msg string) error {
	return s.finish(ctx, id, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`update screenings set status=$2, error=$3, updated_at=now() where id=$1`,
			id, string(schemas.StatusFailed), msg)
		return err
	})
}

// finish locks the row, checks it is still pending, then runs update.
func (s *Store) finish(ctx context.Context, id string, update func(*sqlx.Tx) error) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	return WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		var status string
		err := tx.GetContext(ctx, &status, `select status from screenings where id=$1 for update`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return errors.Wrap(err, "lock screening")
		}
		if status != string(schemas.StatusPending) {
			return ErrNotPending
		}
		return errors.Wrap(update(tx), "update screening")
	})
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}
