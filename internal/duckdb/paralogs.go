package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/panpara/internal/paralog"
)

const memberSep = "|"

// ParalogRow is one non-empty cell of a stored paralog table.
type ParalogRow struct {
	Iteration int
	RowIndex  int
	Ref       string
	Genome    string
	Members   []string
}

// WriteParalogTable batch-inserts the non-empty cells of t using the Appender API.
// Rows already stored for iteration are replaced.
func (s *Store) WriteParalogTable(iteration int, t *paralog.Table) error {
	if _, err := s.db.Exec("DELETE FROM paralog_rows WHERE iteration=?", int64(iteration)); err != nil {
		return fmt.Errorf("clear paralog rows: %w", err)
	}
	if t.Empty() {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "paralog_rows")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for i, row := range t.Rows {
		for j, genome := range t.Genomes {
			if j >= len(row.Cells) || len(row.Cells[j]) == 0 {
				continue
			}
			if err := appender.AppendRow(
				int64(iteration), int64(i), row.Ref, genome,
				strings.Join(row.Cells[j], memberSep),
			); err != nil {
				return fmt.Errorf("append paralog row %s: %w", row.Ref, err)
			}
		}
	}

	return appender.Flush()
}

// ParalogMembers returns the genes assigned to refID in iteration, keyed by genome.
func (s *Store) ParalogMembers(iteration int, refID string) (map[string][]string, error) {
	rows, err := s.db.Query(`SELECT iteration, row_index, ref_id, genome, members
		FROM paralog_rows
		WHERE iteration=? AND ref_id=?`, int64(iteration), refID)
	if err != nil {
		return nil, fmt.Errorf("query paralog row: %w", err)
	}
	defer rows.Close()

	found, err := scanParalogRows(rows)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(found))
	for _, r := range found {
		out[r.Genome] = r.Members
	}
	return out, nil
}

// SearchByGene returns every stored cell of iteration that lists gene.
func (s *Store) SearchByGene(iteration int, gene string) ([]ParalogRow, error) {
	rows, err := s.db.Query(`SELECT iteration, row_index, ref_id, genome, members
		FROM paralog_rows
		WHERE iteration=? AND list_contains(string_split(members, '|'), ?)
		ORDER BY row_index, genome`, int64(iteration), gene)
	if err != nil {
		return nil, fmt.Errorf("query by gene: %w", err)
	}
	defer rows.Close()

	return scanParalogRows(rows)
}

// LatestIteration returns the highest iteration with stored rows, or 0.
func (s *Store) LatestIteration() (int, error) {
	var n int64
	if err := s.db.QueryRow("SELECT COALESCE(MAX(iteration), 0) FROM paralog_rows").Scan(&n); err != nil {
		return 0, fmt.Errorf("query latest iteration: %w", err)
	}
	return int(n), nil
}

// ClearParalogRows removes all stored paralog rows.
func (s *Store) ClearParalogRows() error {
	_, err := s.db.Exec("DELETE FROM paralog_rows")
	return err
}

func scanParalogRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]ParalogRow, error) {
	var out []ParalogRow
	for rows.Next() {
		var iteration, rowIndex int64
		var r ParalogRow
		var members string
		if err := rows.Scan(&iteration, &rowIndex, &r.Ref, &r.Genome, &members); err != nil {
			return nil, fmt.Errorf("scan paralog row: %w", err)
		}
		r.Iteration = int(iteration)
		r.RowIndex = int(rowIndex)
		r.Members = strings.Split(members, memberSep)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate paralog rows: %w", err)
	}
	return out, nil
}
