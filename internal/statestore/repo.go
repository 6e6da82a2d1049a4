package statestore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/svgview/internal/apperr"
)

// Save inserts or replaces a panel record.
func (db *DB) Save(rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("statestore: save: empty id")
	}
	state := rec.State
	if len(state) == 0 {
		state = json.RawMessage(`{}`)
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	_, err := db.conn.Exec(`
		INSERT INTO panels (id, view_type, view_column, title, state, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			view_type   = excluded.view_type,
			view_column = excluded.view_column,
			title       = excluded.title,
			state       = excluded.state,
			updated_at  = excluded.updated_at
	`, rec.ID, rec.ViewType, rec.Column, rec.Title, string(state), rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("statestore: save %s: %w", rec.ID, err)
	}
	return nil
}

// Get returns one record.
func (db *DB) Get(id string) (*Record, error) {
	row := db.conn.QueryRow(`
		SELECT id, view_type, view_column, title, state, updated_at
		FROM panels WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("statestore: panel %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("statestore: get %s: %w", id, err)
	}
	return rec, nil
}

// Delete removes a record. Deleting a missing record is not an error.
func (db *DB) Delete(id string) error {
	if _, err := db.conn.Exec(`DELETE FROM panels WHERE id = ?`, id); err != nil {
		return fmt.Errorf("statestore: delete %s: %w", id, err)
	}
	return nil
}

// List returns every record, oldest first.
func (db *DB) List() ([]Record, error) {
	rows, err := db.conn.Query(`
		SELECT id, view_type, view_column, title, state, updated_at
		FROM panels ORDER BY updated_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("statestore: list: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("statestore: scan: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var rec Record
	var state string
	if err := s.Scan(&rec.ID, &rec.ViewType, &rec.Column, &rec.Title, &state, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.State = json.RawMessage(state)
	return &rec, nil
}
