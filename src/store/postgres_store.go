package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps records in a Postgres table.
type PostgresStore struct {
	DB    *pgxpool.Pool
	table string
}

// NewPostgresStore connects to Postgres and creates the table when missing.
func NewPostgresStore(ctx context.Context, connStr, table string) (*PostgresStore, error) {
	if connStr == "" {
		return nil, errors.New("postgres connection string is required")
	}
	if strings.TrimSpace(table) == "" {
		table = "agents"
	}
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	ps := &PostgresStore{DB: db, table: pgx.Identifier{table}.Sanitize()}
	if err := ps.CreateSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return ps, nil
}

// CreateSchema creates the records table.
func (ps *PostgresStore) CreateSchema(ctx context.Context) error {
	_, err := ps.DB.Exec(ctx, createTableSQL(ps.table))
	if err != nil {
		return fmt.Errorf("create table %s: %w", ps.table, err)
	}
	return nil
}

func createTableSQL(table string) string {
	return `
        CREATE TABLE IF NOT EXISTS ` + table + ` (
                seq BIGSERIAL,
                id UUID PRIMARY KEY,
                name TEXT NOT NULL,
                description TEXT NOT NULL,
                tools TEXT[] NOT NULL DEFAULT '{}',
                status TEXT NOT NULL,
                artifact TEXT NOT NULL DEFAULT '',
                created_at TIMESTAMPTZ NOT NULL,
                updated_at TIMESTAMPTZ NOT NULL
        );`
}

func (ps *PostgresStore) Insert(ctx context.Context, rec Record) (Record, error) {
	if ps == nil || ps.DB == nil {
		return Record{}, errors.New("postgres store is not initialised")
	}
	rec = prepare(rec, time.Now())
	rec.ID = uuid.NewString()
	query := `
                INSERT INTO ` + ps.table + ` (id, name, description, tools, status, artifact, created_at, updated_at)
                VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
        `
	if _, err := ps.DB.Exec(ctx, query, rec.ID, rec.Name, rec.Description, rec.Tools, rec.Status, rec.Artifact, rec.CreatedAt, rec.UpdatedAt); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (ps *PostgresStore) List(ctx context.Context) ([]Record, error) {
	if ps == nil || ps.DB == nil {
		return nil, nil
	}
	rows, err := ps.DB.Query(ctx, `
        SELECT id::text, name, description, tools, status, artifact, created_at, updated_at
        FROM `+ps.table+`
        ORDER BY created_at, seq;
        `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Description, &rec.Tools, &rec.Status, &rec.Artifact, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		rec.UpdatedAt = rec.UpdatedAt.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (ps *PostgresStore) Close(context.Context) error {
	if ps != nil && ps.DB != nil {
		ps.DB.Close()
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
