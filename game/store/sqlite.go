package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/voltplay/driveworld/game/engine"
)

// SQLiteStore persists the snapshot relationally: one table per state
// family plus a key-value meta table. Each Save is a full replace inside a
// transaction, which is plenty for a single-user world and keeps the
// schema trivial to reason about.
type SQLiteStore struct {
	db *sqlx.DB
}

// OpenSQLite opens or creates the snapshot database at the given path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate snapshot db: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS plots (
		id TEXT PRIMARY KEY,
		row INTEGER NOT NULL,
		col INTEGER NOT NULL,
		owner TEXT NOT NULL DEFAULT '',
		charger_json TEXT
	);

	CREATE TABLE IF NOT EXISTS balances (
		pubkey TEXT PRIMARY KEY,
		points INTEGER NOT NULL,
		earned INTEGER NOT NULL,
		spent INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		plot_id TEXT PRIMARY KEY,
		driver TEXT NOT NULL,
		start_ts INTEGER NOT NULL,
		rate_per_sec INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER NOT NULL,
		id TEXT NOT NULL,
		ts INTEGER NOT NULL,
		kind TEXT NOT NULL,
		text TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_seq ON events(seq);
	CREATE INDEX IF NOT EXISTS idx_plots_owner ON plots(owner);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save replaces the stored snapshot with the given one.
func (s *SQLiteStore) Save(snap *engine.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"world_meta", "plots", "balances", "sessions", "events"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return err
		}
	}

	meta := map[string]string{
		"version": strconv.Itoa(snap.Version),
		"rows":    strconv.Itoa(snap.Rows),
		"cols":    strconv.Itoa(snap.Cols),
	}
	if snap.User != nil {
		meta["user_pubkey"] = snap.User.Pubkey
		meta["user_label"] = snap.User.Label
	}
	for key, value := range meta {
		if _, err := tx.Exec("INSERT INTO world_meta (key, value) VALUES (?, ?)", key, value); err != nil {
			return err
		}
	}

	plotStmt, err := tx.Preparex("INSERT INTO plots (id, row, col, owner, charger_json) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer plotStmt.Close()
	for _, p := range snap.Grid {
		var chargerJSON any
		if p.Charger != nil {
			data, err := json.Marshal(p.Charger)
			if err != nil {
				return fmt.Errorf("marshal charger on %s: %w", p.ID, err)
			}
			chargerJSON = string(data)
		}
		if _, err := plotStmt.Exec(p.ID, p.Row, p.Col, p.Owner, chargerJSON); err != nil {
			return fmt.Errorf("insert plot %s: %w", p.ID, err)
		}
	}

	for pk, bal := range snap.Balances {
		if _, err := tx.Exec(
			"INSERT INTO balances (pubkey, points, earned, spent) VALUES (?, ?, ?, ?)",
			pk, bal.Points, bal.Earned, bal.Spent,
		); err != nil {
			return fmt.Errorf("insert balance %s: %w", pk, err)
		}
	}

	for plotID, sess := range snap.Sessions {
		if _, err := tx.Exec(
			"INSERT INTO sessions (plot_id, driver, start_ts, rate_per_sec) VALUES (?, ?, ?, ?)",
			plotID, sess.Driver, sess.StartTs.UnixNano(), sess.RatePerSec,
		); err != nil {
			return fmt.Errorf("insert session %s: %w", plotID, err)
		}
	}

	for i, ev := range snap.Events {
		if _, err := tx.Exec(
			"INSERT INTO events (seq, id, ts, kind, text) VALUES (?, ?, ?, ?, ?)",
			i, ev.ID, ev.Ts.UnixNano(), string(ev.Kind), ev.Text,
		); err != nil {
			return fmt.Errorf("insert event %s: %w", ev.ID, err)
		}
	}

	return tx.Commit()
}

// Load reconstructs the stored snapshot.
func (s *SQLiteStore) Load() (*engine.Snapshot, error) {
	meta, err := s.loadMeta()
	if err != nil {
		return nil, err
	}
	if _, ok := meta["version"]; !ok {
		return nil, ErrNoSnapshot
	}

	snap := &engine.Snapshot{
		Balances: make(map[string]*engine.Balance),
		Sessions: make(map[string]*engine.Session),
	}
	snap.Version, _ = strconv.Atoi(meta["version"])
	snap.Rows, _ = strconv.Atoi(meta["rows"])
	snap.Cols, _ = strconv.Atoi(meta["cols"])
	if pk, ok := meta["user_pubkey"]; ok {
		snap.User = &engine.Identity{Pubkey: pk, Label: meta["user_label"]}
	}

	type plotRow struct {
		ID          string         `db:"id"`
		Row         int            `db:"row"`
		Col         int            `db:"col"`
		Owner       string         `db:"owner"`
		ChargerJSON sql.NullString `db:"charger_json"`
	}
	var plots []plotRow
	if err := s.db.Select(&plots, "SELECT id, row, col, owner, charger_json FROM plots ORDER BY row, col"); err != nil {
		return nil, fmt.Errorf("load plots: %w", err)
	}
	for _, r := range plots {
		p := &engine.Plot{ID: r.ID, Row: r.Row, Col: r.Col, Owner: r.Owner}
		if r.ChargerJSON.Valid {
			var ch engine.Charger
			if err := json.Unmarshal([]byte(r.ChargerJSON.String), &ch); err != nil {
				return nil, fmt.Errorf("unmarshal charger on %s: %w", r.ID, err)
			}
			p.Charger = &ch
		}
		snap.Grid = append(snap.Grid, p)
	}

	type balanceRow struct {
		Pubkey string `db:"pubkey"`
		Points int    `db:"points"`
		Earned int    `db:"earned"`
		Spent  int    `db:"spent"`
	}
	var balances []balanceRow
	if err := s.db.Select(&balances, "SELECT pubkey, points, earned, spent FROM balances"); err != nil {
		return nil, fmt.Errorf("load balances: %w", err)
	}
	for _, r := range balances {
		snap.Balances[r.Pubkey] = &engine.Balance{Points: r.Points, Earned: r.Earned, Spent: r.Spent}
	}

	type sessionRow struct {
		PlotID     string `db:"plot_id"`
		Driver     string `db:"driver"`
		StartTs    int64  `db:"start_ts"`
		RatePerSec int    `db:"rate_per_sec"`
	}
	var sessions []sessionRow
	if err := s.db.Select(&sessions, "SELECT plot_id, driver, start_ts, rate_per_sec FROM sessions"); err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	for _, r := range sessions {
		snap.Sessions[r.PlotID] = &engine.Session{
			Driver:     r.Driver,
			StartTs:    time.Unix(0, r.StartTs).UTC(),
			RatePerSec: r.RatePerSec,
		}
	}

	type eventRow struct {
		Seq  int    `db:"seq"`
		ID   string `db:"id"`
		Ts   int64  `db:"ts"`
		Kind string `db:"kind"`
		Text string `db:"text"`
	}
	var events []eventRow
	if err := s.db.Select(&events, "SELECT seq, id, ts, kind, text FROM events ORDER BY seq"); err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	for _, r := range events {
		snap.Events = append(snap.Events, engine.Event{
			ID:   r.ID,
			Ts:   time.Unix(0, r.Ts).UTC(),
			Kind: engine.EventKind(r.Kind),
			Text: r.Text,
		})
	}

	return snap, nil
}

func (s *SQLiteStore) loadMeta() (map[string]string, error) {
	type metaRow struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	var rows []metaRow
	if err := s.db.Select(&rows, "SELECT key, value FROM world_meta"); err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}
	meta := make(map[string]string, len(rows))
	for _, r := range rows {
		meta[r.Key] = r.Value
	}
	return meta, nil
}

// Exists reports whether a snapshot has been saved.
func (s *SQLiteStore) Exists() bool {
	meta, err := s.loadMeta()
	if err != nil {
		return false
	}
	_, ok := meta["version"]
	return ok
}

// Delete clears the stored snapshot but keeps the database file.
func (s *SQLiteStore) Delete() error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"world_meta", "plots", "balances", "sessions", "events"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return err
		}
	}
	return tx.Commit()
}
