package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/aluiziolira/go-books-dashboard/config"
	"github.com/aluiziolira/go-books-dashboard/models"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)

// LoadRelational reads every row of the profile's table. The connection is
// opened for this call only and closed before returning. Any failure
// discards the rows read so far.
func LoadRelational(ctx context.Context, profile config.ConnectionProfile) (*models.Table, error) {
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("connection profile: %w", err)
	}

	db, err := sql.Open(profile.Driver, profile.DataSourceName())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", profile.Driver, err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("connect %s: %w", profile.Driver, err)
	}

	query := profile.SelectAll()
	slog.Debug("loading table", slog.String("driver", profile.Driver), slog.String("query", query))

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", profile.Table, err)
	}
	defer rows.Close()

	return scanTable(rows)
}

func scanTable(rows *sql.Rows) (*models.Table, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	table := models.NewTable(columns...)
	for rows.Next() {
		cells := make([]sql.NullString, len(columns))
		dest := make([]any, len(columns))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", table.Len()+1, err)
		}
		table.Append(cells...)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return table, nil
}
