package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/stuga-cloud/console/db"
)

const migrationTimeout = time.Minute

// SchemaReport describes how far the database is from the console schema.
type SchemaReport struct {
	Current int64
	Latest  int64
	Applied []string
	Pending []string
}

// UpToDate reports whether every known migration has been applied.
func (s SchemaReport) UpToDate() bool {
	return len(s.Pending) == 0
}

// Runner applies the console schema with goose.
type Runner struct {
	pool   *pgxpool.Pool
	dsn    string
	fsys   fs.FS
	source string
	log    *slog.Logger
}

// New validates inputs and returns a Runner. An empty migrationsDir selects
// the migrations compiled into the binary.
func New(pool *pgxpool.Pool, dsn, migrationsDir string, log *slog.Logger) (Runner, error) {
	if pool == nil {
		return Runner{}, errors.New("nil pool provided")
	}
	if dsn == "" {
		return Runner{}, errors.New("empty database dsn")
	}
	fsys, source, err := migrationFS(migrationsDir)
	if err != nil {
		return Runner{}, err
	}
	if log == nil {
		log = slog.Default()
	}
	return Runner{pool: pool, dsn: dsn, fsys: fsys, source: source, log: log}, nil
}

func migrationFS(dir string) (fs.FS, string, error) {
	if dir == "" {
		sub, err := fs.Sub(db.Migrations(), db.MigrationsDir)
		if err != nil {
			return nil, "", fmt.Errorf("open embedded migrations: %w", err)
		}
		return sub, "embedded", nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, "", fmt.Errorf("locate migrations dir: %w", err)
	}
	if !info.IsDir() {
		return nil, "", fmt.Errorf("migrations path %s is not a directory", dir)
	}
	return os.DirFS(dir), dir, nil
}

// Ensure applies pending migrations and returns the resulting schema report.
func (r Runner) Ensure(ctx context.Context) (SchemaReport, error) {
	var report SchemaReport
	err := r.withProvider(func(p *goose.Provider) error {
		runCtx, cancel := context.WithTimeout(ctx, migrationTimeout)
		defer cancel()

		r.log.Info("applying migrations", "source", r.source)
		results, err := p.Up(runCtx)
		if err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		for _, res := range results {
			r.log.Info("migration applied", "file", res.Source.Path, "duration", res.Duration)
		}
		report, err = r.report(runCtx, p)
		if err != nil {
			return err
		}
		r.log.Info("schema ready", "version", report.Current, "applied_now", len(results))
		return nil
	})
	return report, err
}

// Status reports applied and pending migrations.
func (r Runner) Status(ctx context.Context) (SchemaReport, error) {
	var report SchemaReport
	err := r.withProvider(func(p *goose.Provider) error {
		var err error
		report, err = r.report(ctx, p)
		if err != nil {
			return err
		}
		r.log.Info("migration status",
			"source", r.source,
			"current", report.Current,
			"latest", report.Latest,
			"pending", report.Pending,
		)
		return nil
	})
	return report, err
}

// Down rolls back the latest migration, or down to targetVersion when positive.
func (r Runner) Down(ctx context.Context, targetVersion int64) error {
	return r.withProvider(func(p *goose.Provider) error {
		runCtx, cancel := context.WithTimeout(ctx, migrationTimeout)
		defer cancel()

		if targetVersion > 0 {
			r.log.Info("rolling back migrations", "target", targetVersion)
			results, err := p.DownTo(runCtx, targetVersion)
			if err != nil {
				return fmt.Errorf("rollback to version %d: %w", targetVersion, err)
			}
			for _, res := range results {
				r.log.Info("migration rolled back", "file", res.Source.Path)
			}
			return nil
		}
		r.log.Info("rolling back latest migration")
		res, err := p.Down(runCtx)
		if errors.Is(err, goose.ErrNoNextVersion) {
			r.log.Info("nothing to roll back")
			return nil
		}
		if err != nil {
			return fmt.Errorf("rollback latest migration: %w", err)
		}
		r.log.Info("migration rolled back", "file", res.Source.Path)
		return nil
	})
}

// Ping ensures the database connection is alive.
func (r Runner) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// Close releases underlying connections.
func (r Runner) Close() {
	r.pool.Close()
}

func (r Runner) report(ctx context.Context, p *goose.Provider) (SchemaReport, error) {
	statuses, err := p.Status(ctx)
	if err != nil {
		return SchemaReport{}, fmt.Errorf("migration status: %w", err)
	}
	return summarize(statuses), nil
}

func summarize(statuses []*goose.MigrationStatus) SchemaReport {
	var report SchemaReport
	for _, st := range statuses {
		if st.Source == nil {
			continue
		}
		if st.Source.Version > report.Latest {
			report.Latest = st.Source.Version
		}
		if st.State == goose.StateApplied {
			report.Applied = append(report.Applied, st.Source.Path)
			if st.Source.Version > report.Current {
				report.Current = st.Source.Version
			}
			continue
		}
		report.Pending = append(report.Pending, st.Source.Path)
	}
	return report
}

func (r Runner) withProvider(fn func(*goose.Provider) error) error {
	sqlDB, err := sql.Open("pgx", r.dsn)
	if err != nil {
		return fmt.Errorf("open sql connection: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("ping sql connection: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, r.fsys, goose.WithSlog(r.log))
	if err != nil {
		return fmt.Errorf("configure goose: %w", err)
	}
	return fn(provider)
}
