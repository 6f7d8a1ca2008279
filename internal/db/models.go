package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"autism-screening/internal/schemas"
	"autism-screening/internal/screening"
)

const (
	SourceSignals = "signals"
	SourceMedia   = "media"
)

type Screening struct {
	ID         string          `db:"id"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
	Status     string          `db:"status"`
	Source     string          `db:"source"`
	Request    []byte          `db:"request"`
	Report     []byte          `db:"report"`
	Label      sql.NullString  `db:"label"`
	Confidence sql.NullFloat64 `db:"confidence"`
	Error      sql.NullString  `db:"error"`
}

// Out converts the row into its API shape.
func (s Screening) Out() (schemas.ScreeningOut, error) {
	out := schemas.ScreeningOut{
		ID:        s.ID,
		Status:    schemas.ScreeningStatus(s.Status),
		CreatedAt: s.CreatedAt,
		Error:     s.Error.String,
	}
	if len(s.Report) > 0 {
		var doc screening.ReportDocument
		if err := json.Unmarshal(s.Report, &doc); err != nil {
			return schemas.ScreeningOut{}, err
		}
		out.Report = &doc
	}
	return out, nil
}
