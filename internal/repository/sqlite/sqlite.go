// Package sqlite is an embedded record store, it keeps the full document as
// json next to the indexed fields.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"tigerscraper/internal/model"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

type Config struct {
	// File is the path of the database, ":memory:" keeps it in memory.
	File string `json:"file"`
}

type Repository struct {
	db *sql.DB
}

func wrapOpen(err error) error {
	return fmt.Errorf("open sqlite: %w", err)
}

func Open(config Config) (Repository, error) {
	if config.File == "" {
		return Repository{}, wrapOpen(fmt.Errorf("a path was not specified"))
	}
	if config.File != ":memory:" {
		err := os.MkdirAll(filepath.Dir(config.File), 0777)
		if err != nil {
			return Repository{}, wrapOpen(err)
		}
	}

	db, err := sql.Open("sqlite", config.File)
	if err != nil {
		return Repository{}, wrapOpen(err)
	}
	// sqlite only supports a single writer, see
	// https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return Repository{}, wrapOpen(err)
	}
	return Repository{db: db}, nil
}

func (r Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// EnsureSchema creates the records table and its indexes if they don't exist.
func (r Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, Schema)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r Repository) Save(ctx context.Context, record model.Record) (string, error) {
	doc := record.Document()
	encoded, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("json marshal: %w", err)
	}

	res, err := r.db.ExecContext(
		ctx,
		`insert into records (
			session_id, game_id, bet_amount, win_amount, bet_profit, balance, response_date, document
		) values (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.SessionID,
		doc.GameID,
		doc.BetAmount,
		doc.WinAmount,
		doc.BetProfit,
		doc.Balance,
		doc.Response.Date.UnixMilli(),
		string(encoded),
	)
	if err != nil {
		return "", fmt.Errorf("insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

// Recent returns up to n of the most recently saved documents, newest first.
func (r Repository) Recent(ctx context.Context, n int) ([]model.Document, error) {
	rows, err := r.db.QueryContext(ctx, "select id, document from records order by id desc limit ?", n)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []model.Document
	for rows.Next() {
		var id int64
		var encoded string
		err = rows.Scan(&id, &encoded)
		if err != nil {
			return nil, err
		}
		var doc model.Document
		err = json.Unmarshal([]byte(encoded), &doc)
		if err != nil {
			return nil, fmt.Errorf("json unmarshal record %d: %w", id, err)
		}
		doc.ID = strconv.FormatInt(id, 10)
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (r Repository) Close(ctx context.Context) error {
	return r.db.Close()
}
