// Package log records the tool's runs as structured trace events:
// zerolog JSON lines persisted to an SQLite database, keyed by the cut
// point (round, step, direction) of each engine call so an analysis
// session can be queried back out afterwards instead of grepped from
// flat files.
package log

import (
	"database/sql"
	"errors"
	"fmt"
	stdlog "log" // Use alias to avoid conflict with package name
	"os"
	"path"
	"sync"
	"time"

	"seedtrace/pkg/appdir"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

var (
	pkgLogger = zerolog.Nop() // Default to no-op logger
	eventSink *eventWriter
	dbHandle  *sql.DB      // The single handle used for writing and reading
	mu        sync.RWMutex // Protects dbHandle and pkgLogger during Init/Close

	// ErrNotInitialized is returned when retrieval functions run before Init.
	ErrNotInitialized = errors.New("log: logger not initialized, call log.Init() first")
)

// eventWriter is the io.Writer behind the zerolog logger: each event is
// one JSON document inserted through a prepared statement.
type eventWriter struct {
	db   *sql.DB
	stmt *sql.Stmt
	mu   sync.Mutex // Protect concurrent writes to the statement
}

func newEventWriter(dbPath string) (*eventWriter, *sql.DB, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode=wal&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open sqlite db %s: %w", dbPath, err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping sqlite db %s: %w", dbPath, err)
	}

	createTableSQL := `
    CREATE TABLE IF NOT EXISTS trace_events (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        inserted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP NOT NULL,
        event TEXT NOT NULL
    );`
	if _, err = db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create trace_events table: %w", err)
	}

	// The cut-point columns live inside the JSON; expression indexes
	// keep ByCutPoint queries from scanning the whole session.
	for _, indexSQL := range []string{
		`CREATE INDEX IF NOT EXISTS idx_events_round ON trace_events (json_extract(event, '$.round'));`,
		`CREATE INDEX IF NOT EXISTS idx_events_step ON trace_events (json_extract(event, '$.step'));`,
		`CREATE INDEX IF NOT EXISTS idx_events_level ON trace_events (json_extract(event, '$.level'));`,
	} {
		if _, err = db.Exec(indexSQL); err != nil {
			stdlog.Printf("Warning: Failed to create trace-event index: %v\n", err)
		}
	}

	stmt, err := db.Prepare(`INSERT INTO trace_events (event) VALUES (?)`)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	return &eventWriter{db: db, stmt: stmt}, db, nil
}

func (w *eventWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err = w.stmt.Exec(string(p)); err != nil {
		stdlog.Printf("ERROR writing trace event to SQLite: %v\n", err)
		return 0, err
	}
	return len(p), nil
}

func (w *eventWriter) close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var firstErr error
	if w.stmt != nil {
		if err := w.stmt.Close(); err != nil {
			firstErr = fmt.Errorf("error closing statement: %w", err)
		}
		w.stmt = nil
	}
	if w.db != nil {
		if err := w.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("error closing db: %w", err)
		}
		w.db = nil
	}
	return firstErr
}

// SetStd switches the package logger to a console writer on stdout,
// bypassing the SQLite sink. Useful for one-shot CLI runs.
func SetStd() {
	pkgLogger = zerolog.New(zlog.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})).With().Timestamp().Logger()
}

// Init opens (creating if needed) the trace-event database and routes
// the package logger into it. Relative names resolve under the app dir;
// absolute paths are used as given.
func Init(dbFile string) error {
	if dbFile == "" {
		return fmt.Errorf("logger needs an explicit dbFile")
	}
	dbPath := dbFile
	if !path.IsAbs(dbFile) {
		dbPath = path.Join(appdir.AppDir(), dbFile)
	}

	mu.Lock()
	defer mu.Unlock()

	if eventSink != nil {
		return fmt.Errorf("logger already initialized")
	}

	writer, db, err := newEventWriter(dbPath)
	if err != nil {
		return fmt.Errorf("failed to create SQLite writer: %w", err)
	}
	eventSink = writer
	dbHandle = db

	pkgLogger = zerolog.New(eventSink).With().
		Timestamp().
		Logger()
	return nil
}

func Close() error {
	mu.Lock()
	defer mu.Unlock()

	if eventSink == nil {
		return nil
	}
	writer := eventSink
	eventSink = nil
	dbHandle = nil
	pkgLogger = zerolog.Nop()

	if err := writer.close(); err != nil {
		stdlog.Printf("Error closing SQLite trace-event log: %v\n", err)
		return fmt.Errorf("error closing SQLite trace-event log: %w", err)
	}
	return nil
}

// --- Event helpers ---

func Debug() *zerolog.Event { return pkgLogger.Debug() }
func Info() *zerolog.Event  { return pkgLogger.Info() }
func Warn() *zerolog.Event  { return pkgLogger.Warn() }
func Error() *zerolog.Event { return pkgLogger.Error() }
func Fatal() *zerolog.Event { return pkgLogger.Fatal() }

// Capture returns an info event carrying the fields every engine run is
// keyed by: the cut point, the direction, and how many elements the
// capture produced. The logs command filters on these fields.
func Capture(round int, step string, decrypt bool, rows int) *zerolog.Event {
	direction := "encrypt"
	if decrypt {
		direction = "decrypt"
	}
	return pkgLogger.Info().
		Int("round", round).
		Str("step", step).
		Str("direction", direction).
		Int("rows", rows)
}

// --- Retrieval ---

// Entry is one recorded trace event. Round is -1 and Step empty for
// events that carry no cut point (warnings, errors).
type Entry struct {
	ID         int64
	InsertedAt time.Time
	Round      int
	Step       string
	Raw        string // The raw JSON event
}

func getHandle() (*sql.DB, error) {
	mu.RLock()
	defer mu.RUnlock()
	if dbHandle == nil {
		return nil, ErrNotInitialized
	}
	return dbHandle, nil
}

// parseDBTimestamp parses SQLite's default CURRENT_TIMESTAMP format.
func parseDBTimestamp(ts string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", ts)
	if err != nil {
		return time.Time{}
	}
	return t
}

const entryColumns = `id, inserted_at,
        COALESCE(json_extract(event, '$.round'), -1),
        COALESCE(json_extract(event, '$.step'), ''),
        event`

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var insertedAt string
		if err := rows.Scan(&e.ID, &insertedAt, &e.Round, &e.Step, &e.Raw); err != nil {
			return nil, fmt.Errorf("failed to scan trace event: %w", err)
		}
		e.InsertedAt = parseDBTimestamp(insertedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trace events: %w", err)
	}
	// Newest-first from the query; flip to chronological order.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// LastN retrieves the most recent n trace events in chronological
// order. Returns ErrNotInitialized if Init has not been called.
func LastN(n int) ([]Entry, error) {
	handle, err := getHandle()
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return []Entry{}, nil
	}
	rows, err := handle.Query(
		`SELECT `+entryColumns+` FROM trace_events ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query last %d trace events: %w", n, err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ByCutPoint retrieves the most recent trace events matching a cut
// point, in chronological order. round < 1 matches any round; an empty
// step matches any step. Returns ErrNotInitialized before Init.
func ByCutPoint(round int, step string, limit int) ([]Entry, error) {
	handle, err := getHandle()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := handle.Query(
		`SELECT `+entryColumns+`
        FROM trace_events
        WHERE (? < 1 OR json_extract(event, '$.round') = ?)
          AND (? = '' OR json_extract(event, '$.step') = ?)
        ORDER BY id DESC LIMIT ?`,
		round, round, step, step, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trace events for round %d step %q: %w", round, step, err)
	}
	defer rows.Close()
	return scanEntries(rows)
}
