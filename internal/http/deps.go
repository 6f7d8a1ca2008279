package http

import (
	"context"

	"autism-screening/internal/db"
	"autism-screening/internal/schemas"
	"autism-screening/internal/screening"
)

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -source=deps.go -destination=mock_deps_test.go -package=http

// Store persists screening records.
type Store interface {
	CreateComplete(ctx context.Context, id, source string, request any, report screening.ReportDocument) error
	CreatePending(ctx context.Context, id string, request any) error
	Get(ctx context.Context, id string) (db.Screening, error)
	Fail(ctx context.Context, id, msg string) error
	Ping(ctx context.Context) error
}

// Queue hands media screenings to the worker.
type Queue interface {
	EnqueueClassify(ctx context.Context, p schemas.ClassifyMediaPayload) error
}

// Media stores uploaded files.
type Media interface {
	PutMedia(ctx context.Context, kind, filename, contentType string, data []byte) (string, error)
}

// Cache holds finished screenings.
type Cache interface {
	Get(ctx context.Context, id string) (*schemas.ScreeningOut, error)
	Set(ctx context.Context, out *schemas.ScreeningOut) error
}
