package migrations

import (
	"embed"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
)

//go:embed *.sql
var fs embed.FS

// Run applies all up migrations embedded in this package. It is idempotent.
func Run(dsn string) error {
	if dsn == "" {
		return errors.New("DATABASE_URL is not set")
	}

	d, err := iofs.New(fs, ".")
	if err != nil {
		return errors.Wrap(err, "iofs")
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, dsn)
	if err != nil {
		return errors.Wrap(err, "migrate new")
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "migrate up")
	}
	return nil
}
