package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"fs22bot/internal/stats"
	logx "fs22bot/pkg/logx"
)

//go:embed migrations.sql
var migrations string

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for sqlite driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.ExecContext(context.Background(), migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	log.Debug("sqlite store opened", logx.String("path", path))
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func (s *sqliteStore) LoadStats(ctx context.Context) (stats.State, bool, error) {
	var (
		window int
		last   sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `SELECT window_days, last_rollover FROM stats_meta WHERE id = 1`).Scan(&window, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return stats.State{}, false, nil
	}
	if err != nil {
		return stats.State{}, false, err
	}

	st := stats.State{Window: window, Days: make([]stats.DayState, window)}
	if last.Valid {
		v := last.String
		st.LastRollover = &v
	}
	for i := range st.Days {
		st.Days[i].Servers = map[int]map[string]int{}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT day, server_id, player, minutes FROM stats_minutes`)
	if err != nil {
		return stats.State{}, false, err
	}
	defer rows.Close()
	for rows.Next() {
		var day, serverID, minutes int
		var player string
		if err := rows.Scan(&day, &serverID, &player, &minutes); err != nil {
			return stats.State{}, false, err
		}
		if day < 0 || day >= window {
			s.log.Warn("skipping stats row outside window", logx.Int("day", day), logx.Int("window", window))
			continue
		}
		m := st.Days[day].Servers[serverID]
		if m == nil {
			m = map[string]int{}
			st.Days[day].Servers[serverID] = m
		}
		m[player] = minutes
	}
	if err := rows.Err(); err != nil {
		return stats.State{}, false, err
	}
	return st, true, nil
}

// SaveStats replaces the stored state in one transaction.
func (s *sqliteStore) SaveStats(ctx context.Context, st stats.State) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var last any
	if st.LastRollover != nil {
		last = *st.LastRollover
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO stats_meta(id, window_days, last_rollover) VALUES(1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET window_days = excluded.window_days, last_rollover = excluded.last_rollover`,
		st.Window, last); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM stats_minutes`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO stats_minutes(day, server_id, player, minutes) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for day, d := range st.Days {
		for serverID, players := range d.Servers {
			for player, minutes := range players {
				if _, err = stmt.ExecContext(ctx, day, serverID, player, minutes); err != nil {
					return err
				}
			}
		}
	}
	return tx.Commit()
}
