package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"activity-monitor/internal/logging"
	"activity-monitor/internal/models"
)

// Store is the relational state shared by every request. All cross-request
// state lives here; handlers keep none.
type Store struct {
	db  *gorm.DB
	loc *time.Location
	now func() time.Time
}

// Options configure Open.
type Options struct {
	// Location is used for calendar dates and for times read back.
	Location *time.Location
	// Debug logs every SQL statement.
	Debug bool
}

// gormLogger routes gorm output to the slog logger.
type gormLogger struct {
	level logger.LogLevel
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &gormLogger{level: level}
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Info {
		logging.Logger.Info(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Warn {
		logging.Logger.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Error {
		logging.Logger.Error(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= logger.Error:
		sql, rows := fc()
		logging.Logger.Error("gorm query error", "error", err, "duration", elapsed, "sql", sql, "rows", rows)
	case elapsed > 200*time.Millisecond && l.level >= logger.Warn:
		sql, rows := fc()
		logging.Logger.Warn("slow query", "duration", elapsed, "sql", sql, "rows", rows)
	case l.level >= logger.Info:
		sql, rows := fc()
		logging.Logger.Debug("gorm query", "duration", elapsed, "sql", sql, "rows", rows)
	}
}

func newGormLogger(debug bool) logger.Interface {
	if debug {
		return (&gormLogger{}).LogMode(logger.Info)
	}
	return (&gormLogger{}).LogMode(logger.Warn)
}

// Open opens (creating if needed) the SQLite database at path and migrates it.
func Open(path string, opts Options) (*Store, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Immediate transactions take the write lock up front, so two concurrent
	// reconciliations for the same key cannot both read "no matching period".
	params := url.Values{}
	params.Set("_txlock", "immediate")
	params.Set("_busy_timeout", "5000")
	params.Set("_journal_mode", "WAL")
	params.Set("_foreign_keys", "1")
	params.Set("_loc", loc.String())
	dsn := path + "?" + params.Encode()

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         newGormLogger(opts.Debug),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(0)

	return &Store{db: db, loc: loc, now: time.Now}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Location is the time zone dates are computed in.
func (s *Store) Location() *time.Location { return s.loc }

// SetClock replaces the time source. Tests only.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

func (s *Store) utc(t time.Time) time.Time { return t.UTC().Truncate(time.Second) }

// withRetry retries fn while SQLite reports the database busy or locked.
func withRetry(fn func() error, maxRetries int) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		err = fn()
		if err == nil {
			return nil
		}

		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
			time.Sleep(time.Millisecond * time.Duration(50*(i+1)))
			continue
		}

		return err
	}
	return fmt.Errorf("operation failed after %d retries: %w", maxRetries, err)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching sub literally anywhere.
// Callers pair it with ESCAPE '\'.
func containsPattern(sub string) string {
	return "%" + likeEscaper.Replace(sub) + "%"
}

// translate maps driver errors to the models error taxonomy.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return models.ErrConflict
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return models.ErrConflict
	}
	return err
}

// parseAggregateTime reads a timestamp returned by an aggregate expression
// (MIN/MAX), which SQLite hands back as text rather than a typed column.
func (s *Store) parseAggregateTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.In(s.loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}
