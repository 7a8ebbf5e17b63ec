// Package export copies table rows into other formats.
package export

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"iter"
	"strconv"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/oda/rowdb/internal/row"
)

// DriverName is the database/sql driver used for SQLite exports.
const DriverName = "sqlite"

const schema = `CREATE TABLE IF NOT EXISTS rows (
	position INTEGER PRIMARY KEY,
	id       INTEGER NOT NULL,
	username TEXT    NOT NULL,
	email    TEXT    NOT NULL
)`

// ToSQLite writes rows into the rows table of the SQLite database at path,
// replacing its previous contents. The whole export is one transaction.
// It returns the number of rows written.
func ToSQLite(ctx context.Context, rows iter.Seq2[row.Row, error], path string) (int, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return 0, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return 0, fmt.Errorf("create table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM rows`); err != nil {
		return 0, fmt.Errorf("clear table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO rows (position, id, username, email) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	n := 0
	for r, err := range rows {
		if err != nil {
			return n, err
		}
		if _, err := stmt.ExecContext(ctx, n, int64(r.ID), r.Username, r.Email); err != nil {
			return n, fmt.Errorf("insert row %d: %w", n, err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return n, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// CSVHeader is the first record written by ToCSV.
var CSVHeader = []string{"id", "username", "email"}

// ToCSV writes a header record and one record per row to w.
// It returns the number of rows written.
func ToCSV(rows iter.Seq2[row.Row, error], w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return 0, err
	}

	n := 0
	for r, err := range rows {
		if err != nil {
			return n, err
		}
		rec := []string{strconv.FormatUint(uint64(r.ID), 10), r.Username, r.Email}
		if err := cw.Write(rec); err != nil {
			return n, err
		}
		n++
	}

	cw.Flush()
	return n, cw.Error()
}
