// Package store provides persistence backends for LeadPipe.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/VigiaLabs/LeadPipe/internal/models"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store. The DSN is a file path to the
// database file; missing parent directories are created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("SQLiteStore failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("SQLiteStore failed to open connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLiteStore ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("SQLiteStore failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLiteStore ready", "dsn", cfg.DSN)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveProspect(p *models.ProspectState) error {
	doc, err := json.Marshal(p)
	if err != nil {
		slog.Error("SQLiteStore SaveProspect marshal failed", "error", err, "phone", p.PhoneNumber)
		return fmt.Errorf("failed to marshal prospect %s: %w", p.PhoneNumber, err)
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO prospects (phone_number, conversation_state, state_json, updated_at) VALUES (?, ?, ?, ?)`,
		p.PhoneNumber, string(p.ConversationState), string(doc), time.Now().Unix())
	if err != nil {
		slog.Error("SQLiteStore SaveProspect failed", "error", err, "phone", p.PhoneNumber)
		return fmt.Errorf("failed to save prospect %s: %w", p.PhoneNumber, err)
	}
	slog.Debug("SQLiteStore SaveProspect succeeded", "phone", p.PhoneNumber, "state", p.ConversationState)
	return nil
}

func (s *SQLiteStore) GetProspect(phone string) (*models.ProspectState, error) {
	var doc string
	err := s.db.QueryRow(`SELECT state_json FROM prospects WHERE phone_number = ?`, phone).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetProspect failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to load prospect %s: %w", phone, err)
	}
	var p models.ProspectState
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		slog.Error("SQLiteStore GetProspect unmarshal failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to decode prospect %s: %w", phone, err)
	}
	return &p, nil
}

func (s *SQLiteStore) ListActiveProspects() ([]*models.ProspectState, error) {
	rows, err := s.db.Query(`SELECT state_json FROM prospects WHERE conversation_state NOT IN (?, ?)`,
		string(models.StateClosed), string(models.StateCompleted))
	if err != nil {
		slog.Error("SQLiteStore ListActiveProspects query failed", "error", err)
		return nil, fmt.Errorf("failed to query prospects: %w", err)
	}
	defer rows.Close()

	var active []*models.ProspectState
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			slog.Error("SQLiteStore ListActiveProspects scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan prospect row: %w", err)
		}
		var p models.ProspectState
		if err := json.Unmarshal([]byte(doc), &p); err != nil {
			slog.Error("SQLiteStore ListActiveProspects unmarshal failed", "error", err)
			continue
		}
		active = append(active, &p)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListActiveProspects rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate prospect rows: %w", err)
	}
	slog.Debug("SQLiteStore ListActiveProspects succeeded", "count", len(active))
	return active, nil
}

func (s *SQLiteStore) DeleteProspect(phone string) error {
	_, err := s.db.Exec(`DELETE FROM prospects WHERE phone_number = ?`, phone)
	if err != nil {
		slog.Error("SQLiteStore DeleteProspect failed", "error", err, "phone", phone)
		return fmt.Errorf("failed to delete prospect %s: %w", phone, err)
	}
	return nil
}

func (s *SQLiteStore) AddResponse(r models.Response) error {
	_, err := s.db.Exec(`INSERT INTO responses (sender, body, time) VALUES (?, ?, ?)`, r.From, r.Body, r.Time)
	if err != nil {
		slog.Error("SQLiteStore AddResponse failed", "error", err, "from", r.From)
		return fmt.Errorf("failed to insert response from %s: %w", r.From, err)
	}
	return nil
}

func (s *SQLiteStore) GetResponses() ([]models.Response, error) {
	rows, err := s.db.Query(`SELECT sender, body, time FROM responses`)
	if err != nil {
		slog.Error("SQLiteStore GetResponses query failed", "error", err)
		return nil, err
	}
	defer rows.Close()

	var responses []models.Response
	for rows.Next() {
		var r models.Response
		if err := rows.Scan(&r.From, &r.Body, &r.Time); err != nil {
			slog.Error("SQLiteStore GetResponses scan failed", "error", err)
			return nil, err
		}
		responses = append(responses, r)
	}
	return responses, rows.Err()
}

func (s *SQLiteStore) AddReceipt(r models.Receipt) error {
	_, err := s.db.Exec(`INSERT INTO receipts (recipient, status, time) VALUES (?, ?, ?)`, r.To, r.Status, r.Time)
	if err != nil {
		slog.Error("SQLiteStore AddReceipt failed", "error", err, "to", r.To)
		return fmt.Errorf("failed to insert receipt for %s: %w", r.To, err)
	}
	return nil
}

func (s *SQLiteStore) GetReceipts() ([]models.Receipt, error) {
	rows, err := s.db.Query(`SELECT recipient, status, time FROM receipts`)
	if err != nil {
		slog.Error("SQLiteStore GetReceipts query failed", "error", err)
		return nil, err
	}
	defer rows.Close()

	var receipts []models.Receipt
	for rows.Next() {
		var r models.Receipt
		if err := rows.Scan(&r.To, &r.Status, &r.Time); err != nil {
			slog.Error("SQLiteStore GetReceipts scan failed", "error", err)
			return nil, err
		}
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("SQLiteStore failed to close database", "error", err)
	}
	return err
}
