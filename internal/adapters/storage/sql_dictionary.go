package storage

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/lcalzada-xor/wkarma/internal/core/domain"
	"github.com/lcalzada-xor/wkarma/internal/core/ports"
	_ "github.com/mattn/go-sqlite3"
)

// SQLDictionary keeps the SSID dictionary in an SQLite table so very large
// lists can be paged without a text index.
type SQLDictionary struct {
	db        *sql.DB
	batchStmt *sql.Stmt
}

// OpenSQLDictionary opens (or creates) the dictionary database at path.
func OpenSQLDictionary(path string) (*SQLDictionary, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open dictionary db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping dictionary db: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS ssid_dictionary (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ssid TEXT NOT NULL UNIQUE
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	stmt, err := db.Prepare("SELECT ssid FROM ssid_dictionary ORDER BY id LIMIT ? OFFSET ?")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare batch statement: %w", err)
	}
	return &SQLDictionary{db: db, batchStmt: stmt}, nil
}

// Import loads one SSID per line from r, skipping blanks and duplicates, and
// returns how many were added.
func (d *SQLDictionary) Import(ctx context.Context, r io.Reader) (int, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO ssid_dictionary (ssid) VALUES (?)")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	added := 0
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		ssid := strings.TrimSpace(sc.Text())
		if ssid == "" {
			continue
		}
		if len(ssid) > domain.MaxSSIDLen {
			ssid = ssid[:domain.MaxSSIDLen]
		}
		res, err := stmt.ExecContext(ctx, ssid)
		if err != nil {
			return 0, fmt.Errorf("insert %q: %w", ssid, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	return added, tx.Commit()
}

// ReadBatch implements ports.SSIDDictionary.
func (d *SQLDictionary) ReadBatch(start, count int) ([]string, error) {
	if start < 0 || count <= 0 {
		return nil, nil
	}
	rows, err := d.batchStmt.Query(count, start)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0, count)
	for rows.Next() {
		var ssid string
		if err := rows.Scan(&ssid); err != nil {
			return nil, err
		}
		out = append(out, ssid)
	}
	return out, rows.Err()
}

// Len returns the number of SSIDs stored.
func (d *SQLDictionary) Len() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM ssid_dictionary").Scan(&n)
	return n, err
}

func (d *SQLDictionary) Close() error {
	d.batchStmt.Close()
	return d.db.Close()
}

var _ ports.SSIDDictionary = (*SQLDictionary)(nil)
