package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// Sighting events.
const (
	SightingAttached = "attached"
	SightingDetached = "detached"
)

// Record is the inventory row for one lamp array.
type Record struct {
	ID        string    `json:"id"`
	LampCount int       `json:"lamp_count"`
	Attached  bool      `json:"attached"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// Sighting is one attach or detach of a lamp array.
type Sighting struct {
	ID        int64     `json:"id"`
	DeviceID  string    `json:"device_id"`
	Event     string    `json:"event"`
	LampCount int       `json:"lamp_count"`
	CreatedAt time.Time `json:"created_at"`
}

// Inventory records lamp arrays as they come and go. The engine calls it
// from the hotplug path only.
type Inventory interface {
	// RecordAttached upserts the device and logs an attach sighting.
	RecordAttached(ctx context.Context, id string, lampCount int) error

	// RecordDetached marks the device detached and logs a detach sighting.
	// Returns ErrDeviceNotFound if the device was never recorded.
	RecordDetached(ctx context.Context, id string) error
}

// SQLiteInventory implements Inventory using SQLite.
//
// It stores one row per device in lamp_devices and an append-only log in
// lamp_sightings.
type SQLiteInventory struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteInventory creates a new SQLite-backed inventory.
//
// Parameters:
//   - db: Open SQLite connection with the lamp inventory migration applied
//
// Returns:
//   - *SQLiteInventory: Inventory ready for use
func NewSQLiteInventory(db *sql.DB) *SQLiteInventory {
	return &SQLiteInventory{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// RecordAttached upserts the device row and logs the attach.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - id: Stable device id
//   - lampCount: Number of lamps the array reported
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (s *SQLiteInventory) RecordAttached(ctx context.Context, id string, lampCount int) error {
	if id == "" {
		return fmt.Errorf("%w: device id is required", ErrInvalidDevice)
	}
	now := s.now().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO lamp_devices (id, lamp_count, attached, first_seen, last_seen)
		 VALUES (?, ?, 1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			lamp_count = excluded.lamp_count,
			attached = 1,
			last_seen = excluded.last_seen`,
		id, lampCount, now, now,
	)
	if err != nil {
		return fmt.Errorf("upserting lamp device: %w", err)
	}

	if err := insertSighting(ctx, tx, id, SightingAttached, lampCount, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing attach: %w", err)
	}
	return nil
}

// RecordDetached marks the device detached and logs the detach.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - id: Stable device id
//
// Returns:
//   - error: ErrDeviceNotFound if the device was never attached
func (s *SQLiteInventory) RecordDetached(ctx context.Context, id string) error {
	now := s.now().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	result, err := tx.ExecContext(ctx,
		"UPDATE lamp_devices SET attached = 0, last_seen = ? WHERE id = ?",
		now, id,
	)
	if err != nil {
		return fmt.Errorf("updating lamp device: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrDeviceNotFound
	}

	if err := insertSighting(ctx, tx, id, SightingDetached, 0, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing detach: %w", err)
	}
	return nil
}

// DetachAll marks every device detached. Called at startup: nothing is
// attached until the hotplug watcher says so.
//
// Returns:
//   - int64: Number of devices that were marked attached
//   - error: nil on success, otherwise the underlying database error
func (s *SQLiteInventory) DetachAll(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, "UPDATE lamp_devices SET attached = 0 WHERE attached = 1")
	if err != nil {
		return 0, fmt.Errorf("detaching lamp devices: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return rows, nil
}

// Get retrieves one device record.
// Returns ErrDeviceNotFound if the device does not exist.
func (s *SQLiteInventory) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, lamp_count, attached, first_seen, last_seen
		 FROM lamp_devices
		 WHERE id = ?`,
		id,
	)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying lamp device by id: %w", err)
	}
	return rec, nil
}

// List retrieves every device record ordered by id.
func (s *SQLiteInventory) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lamp_count, attached, first_seen, last_seen
		 FROM lamp_devices
		 ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying lamp devices: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning lamp device: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lamp devices: %w", err)
	}
	return records, nil
}

// History returns recent sightings for a device, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - deviceID: Unique device identifier
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []Sighting: Sightings ordered by created_at DESC
//   - error: nil on success, otherwise the underlying query error
func (s *SQLiteInventory) History(ctx context.Context, deviceID string, limit int) ([]Sighting, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("%w: device id is required", ErrInvalidDevice)
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, device_id, event, lamp_count, created_at
		 FROM lamp_sightings
		 WHERE device_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		deviceID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying sightings: %w", err)
	}
	defer rows.Close()

	sightings := make([]Sighting, 0, limit)
	for rows.Next() {
		var sg Sighting
		var createdAt string
		if err := rows.Scan(&sg.ID, &sg.DeviceID, &sg.Event, &sg.LampCount, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning sighting: %w", err)
		}
		if sg.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, err
		}
		sightings = append(sightings, sg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sightings: %w", err)
	}
	return sightings, nil
}

func insertSighting(ctx context.Context, tx *sql.Tx, id, event string, lampCount int, at string) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO lamp_sightings (device_id, event, lamp_count, created_at) VALUES (?, ?, ?, ?)",
		id, event, lampCount, at,
	)
	if err != nil {
		return fmt.Errorf("inserting sighting: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var attached int
	var firstSeen, lastSeen string

	if err := row.Scan(&rec.ID, &rec.LampCount, &attached, &firstSeen, &lastSeen); err != nil {
		return nil, err
	}
	rec.Attached = attached != 0

	var err error
	if rec.FirstSeen, err = parseTimestamp(firstSeen); err != nil {
		return nil, err
	}
	if rec.LastSeen, err = parseTimestamp(lastSeen); err != nil {
		return nil, err
	}
	return &rec, nil
}

// parseTimestamp parses a timestamp stored in SQLite.
func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("timestamp is empty")
	}

	timestamp, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", value, err)
	}
	return timestamp, nil
}
