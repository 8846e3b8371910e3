package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// WarrantyStore backs warranty lookups, ticket persistence and the run
// audit log with a local sqlite database.
type WarrantyStore struct {
	DB *sql.DB
}

func NewWarrantyStore(dbPath string) (*WarrantyStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Create tables if not exist
	queries := []string{
		`CREATE TABLE IF NOT EXISTS warranties (
			serial TEXT PRIMARY KEY,
			product TEXT,
			customer_email TEXT,
			purchased_at TEXT,
			expires_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS tickets (
			id TEXT PRIMARY KEY,
			serial TEXT,
			summary TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email_id TEXT,
			status TEXT,
			steps INTEGER,
			finished_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
	}
	for _, q := range queries {
		_, err = db.Exec(q)
		if err != nil {
			return nil, err
		}
	}

	return &WarrantyStore{DB: db}, nil
}

func (s *WarrantyStore) AddWarranty(serial, product, customerEmail string, purchasedAt, expiresAt time.Time) error {
	query := `INSERT OR REPLACE INTO warranties (serial, product, customer_email, purchased_at, expires_at) VALUES (?, ?, ?, ?, ?)`
	_, err := s.DB.Exec(query, serial, product, customerEmail,
		purchasedAt.UTC().Format(time.RFC3339), expiresAt.UTC().Format(time.RFC3339))
	return err
}

// Check resolves a serial to a warranty status line. Absence of a
// registration is a domain answer, not an error.
func (s *WarrantyStore) Check(ctx context.Context, serial string) (string, error) {
	query := `SELECT product, expires_at FROM warranties WHERE serial = ?`
	var product, expiresRaw string
	err := s.DB.QueryRowContext(ctx, query, serial).Scan(&product, &expiresRaw)
	if err == sql.ErrNoRows {
		return fmt.Sprintf("no warranty on record for serial %s", serial), nil
	}
	if err != nil {
		return "", fmt.Errorf("warranty lookup for %s: %v", serial, err)
	}

	expiresAt, err := time.Parse(time.RFC3339, expiresRaw)
	if err != nil {
		return "", fmt.Errorf("warranty lookup for %s: bad expiry %q: %v", serial, expiresRaw, err)
	}

	if time.Now().After(expiresAt) {
		return fmt.Sprintf("expired on %s (%s)", expiresAt.Format("2006-01-02"), product), nil
	}
	return fmt.Sprintf("valid until %s (%s)", expiresAt.Format("2006-01-02"), product), nil
}

func (s *WarrantyStore) CreateTicket(id, serial, summary string) error {
	query := `INSERT INTO tickets (id, serial, summary) VALUES (?, ?, ?)`
	_, err := s.DB.Exec(query, id, serial, summary)
	return err
}

func (s *WarrantyStore) GetTicket(id string) (serial string, summary string, err error) {
	query := `SELECT serial, summary FROM tickets WHERE id = ?`
	err = s.DB.QueryRow(query, id).Scan(&serial, &summary)
	return serial, summary, err
}

// RecordRun appends one row to the audit log for a finished run.
func (s *WarrantyStore) RecordRun(emailID string, status string, steps int) error {
	query := `INSERT INTO runs (email_id, status, steps) VALUES (?, ?, ?)`
	_, err := s.DB.Exec(query, emailID, status, steps)
	return err
}

func (s *WarrantyStore) Close() error {
	return s.DB.Close()
}
