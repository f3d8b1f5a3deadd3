// Package postgis reads incident polygons from a PostGIS table.
package postgis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb/encoding/wkb"

	"github.com/couchcryptid/wildfire-etl/internal/domain"
)

// Querier is the subset of pgxpool.Pool the loader needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Loader reads every row of one incident table.
type Loader struct {
	db         Querier
	table      pgx.Identifier
	geomColumn string
	logger     *slog.Logger
}

// NewPool opens and pings a connection pool.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	cfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewLoader creates a Loader for a table given as "schema.table" or
// "table".
func NewLoader(db Querier, table, geomColumn string, logger *slog.Logger) (*Loader, error) {
	ident, err := ParseTableName(table)
	if err != nil {
		return nil, err
	}
	if geomColumn == "" {
		return nil, errors.New("geometry column is required")
	}
	return &Loader{db: db, table: ident, geomColumn: geomColumn, logger: logger}, nil
}

// ParseTableName splits a dotted table name into a quoted identifier.
func ParseTableName(table string) (pgx.Identifier, error) {
	parts := strings.Split(table, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
	}
	return pgx.Identifier(parts), nil
}

// Query returns the SQL used to read the table. Non-geometry columns come
// back as one JSON object so any table layout can be passed through.
func (l *Loader) Query() string {
	geom := pgx.Identifier{l.geomColumn}.Sanitize()
	return fmt.Sprintf(
		"SELECT ST_AsBinary(ST_Force2D(t.%s)), to_jsonb(t) - $1::text FROM %s t",
		geom, l.table.Sanitize(),
	)
}

// LoadIncidents reads every row of the table.
func (l *Loader) LoadIncidents(ctx context.Context) ([]domain.Incident, error) {
	rows, err := l.db.Query(ctx, l.Query(), l.geomColumn)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", l.table.Sanitize(), err)
	}
	defer rows.Close()

	var incidents []domain.Incident
	for rows.Next() {
		var geomWKB []byte
		var attrs map[string]any
		if err := rows.Scan(&geomWKB, &attrs); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		inc, err := toIncident(geomWKB, attrs)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(incidents), err)
		}
		incidents = append(incidents, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	l.logger.Info("incidents loaded", "table", l.table.Sanitize(), "count", len(incidents))
	return incidents, nil
}

// toIncident decodes one row. A NULL geometry yields an incident without
// geometry, which the overlay rejects.
func toIncident(geomWKB []byte, attrs map[string]any) (domain.Incident, error) {
	inc := domain.Incident{Attributes: make(domain.Attributes, len(attrs))}
	if len(geomWKB) > 0 {
		g, err := wkb.Unmarshal(geomWKB)
		if err != nil {
			return domain.Incident{}, fmt.Errorf("decode geometry: %w", err)
		}
		inc.Geometry = g
	}

	for k, v := range attrs {
		switch strings.ToLower(k) {
		case domain.FieldClass:
			inc.Class = asText(v)
		case domain.FieldDateImg:
			inc.DateImg = asText(v)
		default:
			inc.Attributes[k] = v
		}
	}
	return inc, nil
}

func asText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
