// Package store provides persistence backends for LeadPipe.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/VigiaLabs/LeadPipe/internal/models"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store with the given DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("PostgresStore failed to open connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("PostgresStore ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("PostgresStore failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgresStore ready")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) SaveProspect(p *models.ProspectState) error {
	doc, err := json.Marshal(p)
	if err != nil {
		slog.Error("PostgresStore SaveProspect marshal failed", "error", err, "phone", p.PhoneNumber)
		return fmt.Errorf("failed to marshal prospect %s: %w", p.PhoneNumber, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO prospects (phone_number, conversation_state, state_json, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (phone_number) DO UPDATE
		SET conversation_state = EXCLUDED.conversation_state,
		    state_json = EXCLUDED.state_json,
		    updated_at = EXCLUDED.updated_at`,
		p.PhoneNumber, string(p.ConversationState), string(doc), time.Now().Unix())
	if err != nil {
		slog.Error("PostgresStore SaveProspect failed", "error", err, "phone", p.PhoneNumber)
		return fmt.Errorf("failed to save prospect %s: %w", p.PhoneNumber, err)
	}
	slog.Debug("PostgresStore SaveProspect succeeded", "phone", p.PhoneNumber, "state", p.ConversationState)
	return nil
}

func (s *PostgresStore) GetProspect(phone string) (*models.ProspectState, error) {
	var doc string
	err := s.db.QueryRow(`SELECT state_json FROM prospects WHERE phone_number = $1`, phone).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetProspect failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to load prospect %s: %w", phone, err)
	}
	var p models.ProspectState
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		slog.Error("PostgresStore GetProspect unmarshal failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to decode prospect %s: %w", phone, err)
	}
	return &p, nil
}

func (s *PostgresStore) ListActiveProspects() ([]*models.ProspectState, error) {
	rows, err := s.db.Query(`SELECT state_json FROM prospects WHERE conversation_state NOT IN ($1, $2)`,
		string(models.StateClosed), string(models.StateCompleted))
	if err != nil {
		slog.Error("PostgresStore ListActiveProspects query failed", "error", err)
		return nil, fmt.Errorf("failed to query prospects: %w", err)
	}
	defer rows.Close()

	var active []*models.ProspectState
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			slog.Error("PostgresStore ListActiveProspects scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan prospect row: %w", err)
		}
		var p models.ProspectState
		if err := json.Unmarshal([]byte(doc), &p); err != nil {
			slog.Error("PostgresStore ListActiveProspects unmarshal failed", "error", err)
			continue
		}
		active = append(active, &p)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListActiveProspects rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate prospect rows: %w", err)
	}
	return active, nil
}

func (s *PostgresStore) DeleteProspect(phone string) error {
	_, err := s.db.Exec(`DELETE FROM prospects WHERE phone_number = $1`, phone)
	if err != nil {
		slog.Error("PostgresStore DeleteProspect failed", "error", err, "phone", phone)
		return fmt.Errorf("failed to delete prospect %s: %w", phone, err)
	}
	return nil
}

func (s *PostgresStore) AddResponse(r models.Response) error {
	_, err := s.db.Exec(`INSERT INTO responses (sender, body, time) VALUES ($1, $2, $3)`, r.From, r.Body, r.Time)
	if err != nil {
		slog.Error("PostgresStore AddResponse failed", "error", err, "from", r.From)
		return fmt.Errorf("failed to insert response from %s: %w", r.From, err)
	}
	return nil
}

func (s *PostgresStore) GetResponses() ([]models.Response, error) {
	rows, err := s.db.Query(`SELECT sender, body, time FROM responses`)
	if err != nil {
		slog.Error("PostgresStore GetResponses query failed", "error", err)
		return nil, err
	}
	defer rows.Close()

	var responses []models.Response
	for rows.Next() {
		var r models.Response
		if err := rows.Scan(&r.From, &r.Body, &r.Time); err != nil {
			slog.Error("PostgresStore GetResponses scan failed", "error", err)
			return nil, err
		}
		responses = append(responses, r)
	}
	return responses, rows.Err()
}

func (s *PostgresStore) AddReceipt(r models.Receipt) error {
	_, err := s.db.Exec(`INSERT INTO receipts (recipient, status, time) VALUES ($1, $2, $3)`, r.To, r.Status, r.Time)
	if err != nil {
		slog.Error("PostgresStore AddReceipt failed", "error", err, "to", r.To)
		return fmt.Errorf("failed to insert receipt for %s: %w", r.To, err)
	}
	return nil
}

func (s *PostgresStore) GetReceipts() ([]models.Receipt, error) {
	rows, err := s.db.Query(`SELECT recipient, status, time FROM receipts`)
	if err != nil {
		slog.Error("PostgresStore GetReceipts query failed", "error", err)
		return nil, err
	}
	defer rows.Close()

	var receipts []models.Receipt
	for rows.Next() {
		var r models.Receipt
		if err := rows.Scan(&r.To, &r.Status, &r.Time); err != nil {
			slog.Error("PostgresStore GetReceipts scan failed", "error", err)
			return nil, err
		}
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}

// Close closes the PostgreSQL connection pool.
func (s *PostgresStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("PostgresStore failed to close database", "error", err)
	}
	return err
}
