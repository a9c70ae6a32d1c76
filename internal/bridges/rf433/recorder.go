package rf433

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Transmitter is one row of rf433_transmitters.
type Transmitter struct {
	Address    string         `json:"address"`
	Kind       string         `json:"kind"`
	FirstSeen  time.Time      `json:"first_seen"`
	LastSeen   time.Time      `json:"last_seen"`
	FrameCount int64          `json:"frame_count"`
	BatteryLow bool           `json:"battery_low"`
	LastState  map[string]any `json:"last_state"`
}

// Recorder passively records every transmitter the receiver hears,
// building a registry of known addresses for discovery and the API.
//
// Thread Safety: All methods are safe for concurrent use.
type Recorder struct {
	db     *sql.DB
	logger Logger

	upsertStmt *sql.Stmt
	stmtMu     sync.Mutex

	closed bool
	mu     sync.RWMutex
}

// NewRecorder creates a recorder. The database must have the
// rf433_transmitters table.
func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{db: db}
}

// SetLogger sets the logger for the recorder.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// Start prepares the upsert statement. Calling it twice is a no-op.
func (r *Recorder) Start() error {
	r.stmtMu.Lock()
	defer r.stmtMu.Unlock()

	if r.upsertStmt != nil {
		return nil
	}

	// RETURNING frame_count tells a first sighting (1) from a repeat.
	stmt, err := r.db.Prepare(`
		INSERT INTO rf433_transmitters (address, kind, first_seen, last_seen, frame_count, last_state, battery_low)
		VALUES (?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			last_seen = excluded.last_seen,
			frame_count = frame_count + 1,
			last_state = excluded.last_state,
			battery_low = excluded.battery_low
		RETURNING frame_count
	`)
	if err != nil {
		return fmt.Errorf("preparing transmitter upsert statement: %w", err)
	}

	r.mu.Lock()
	r.closed = false
	r.mu.Unlock()

	r.upsertStmt = stmt
	r.log("transmitter recorder started")
	return nil
}

// Stop closes the prepared statement. Later Record calls fail with
// ErrRecorderClosed.
func (r *Recorder) Stop() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.stmtMu.Lock()
	defer r.stmtMu.Unlock()

	if r.upsertStmt != nil {
		r.upsertStmt.Close()
		r.upsertStmt = nil
	}
	r.log("transmitter recorder stopped")
}

// Record upserts one sighting and reports whether the address was new.
func (r *Recorder) Record(ctx context.Context, msg StateMessage) (bool, error) {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return false, ErrRecorderClosed
	}

	r.stmtMu.Lock()
	stmt := r.upsertStmt
	r.stmtMu.Unlock()
	if stmt == nil {
		return false, ErrRecorderClosed
	}

	state, err := json.Marshal(msg.State)
	if err != nil {
		return false, fmt.Errorf("encoding state for %s: %w", msg.Address, err)
	}
	battery := 0
	if low, _ := msg.State["battery_low"].(bool); low {
		battery = 1
	}
	seen := msg.Timestamp.Unix()

	var count int64
	err = stmt.QueryRowContext(ctx, msg.Address, msg.Kind, seen, seen, string(state), battery).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("recording transmitter %s: %w", msg.Address, err)
	}
	return count == 1, nil
}

// List returns all recorded transmitters, most recently seen first.
func (r *Recorder) List(ctx context.Context) ([]Transmitter, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT address, kind, first_seen, last_seen, frame_count, last_state, battery_low
		FROM rf433_transmitters
		ORDER BY last_seen DESC, address
	`)
	if err != nil {
		return nil, fmt.Errorf("listing transmitters: %w", err)
	}
	defer rows.Close()

	var out []Transmitter
	for rows.Next() {
		var (
			t                   Transmitter
			firstSeen, lastSeen int64
			state               string
			battery             int
		)
		if err := rows.Scan(&t.Address, &t.Kind, &firstSeen, &lastSeen, &t.FrameCount, &state, &battery); err != nil {
			return nil, fmt.Errorf("scanning transmitter row: %w", err)
		}
		t.FirstSeen = time.Unix(firstSeen, 0).UTC()
		t.LastSeen = time.Unix(lastSeen, 0).UTC()
		t.BatteryLow = battery == 1
		if err := json.Unmarshal([]byte(state), &t.LastState); err != nil {
			r.logError("decoding stored state", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Count returns the number of recorded transmitters.
func (r *Recorder) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rf433_transmitters`).Scan(&count)
	return count, err
}

func (r *Recorder) log(msg string, keysAndValues ...any) {
	if r.logger != nil {
		r.logger.Info(msg, keysAndValues...)
	}
}

func (r *Recorder) logError(msg string, err error) {
	if r.logger != nil {
		r.logger.Error(msg, "error", err)
	}
}
