// Package postgis stores simplified routes as LINESTRING geometries in a
// PostGIS database.
package postgis

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/kass/track2route/pkg/export"
	"github.com/kass/track2route/pkg/models"
	_ "github.com/lib/pq"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// ErrNotFound is returned by Get for an unknown route id
var ErrNotFound = errors.New("route not found")

// Config holds the connection settings
type Config struct {
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	User              string `yaml:"user"`
	Password          string `yaml:"password"`
	Database          string `yaml:"database"`
	MaxConnections    int    `yaml:"max_connections"`
	ConnectionTimeout int    `yaml:"connection_timeout"` // seconds
}

// DSN renders the lib/pq connection string
func (c Config) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database)
	if c.ConnectionTimeout > 0 {
		dsn += fmt.Sprintf(" connect_timeout=%d", c.ConnectionTimeout)
	}
	return dsn
}

// StoredRoute is a route together with how it was produced
type StoredRoute struct {
	ID             uuid.UUID
	Source         string
	Tolerance      float64
	OriginalPoints int
	Route          models.Route
	CreatedAt      time.Time
}

// Summary describes a stored route without its geometry
type Summary struct {
	ID        uuid.UUID
	Name      string
	Source    string
	Points    int
	LengthM   float64
	CreatedAt time.Time
}

// RouteStore persists routes in PostGIS
type RouteStore struct {
	db *sql.DB
}

// NewRouteStore opens and pings the database
func NewRouteStore(cfg Config) (*RouteStore, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = 10
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &RouteStore{db: db}, nil
}

// InitSchema creates the routes table and its spatial index. With reset the
// table is dropped first.
func (s *RouteStore) InitSchema(reset bool) error {
	queries := []string{
		`CREATE EXTENSION IF NOT EXISTS postgis;`,
	}
	if reset {
		queries = append(queries, `DROP TABLE IF EXISTS routes;`)
	}
	queries = append(queries,
		`CREATE TABLE IF NOT EXISTS routes (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			tolerance DOUBLE PRECISION NOT NULL,
			original_points INTEGER NOT NULL,
			geom GEOMETRY(LINESTRING, 4326) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_routes_geom ON routes USING GIST(geom);`,
	)

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

// InsertRoutes stores routes in one transaction. Routes without an ID get a
// new one; the ids are returned in input order.
func (s *RouteStore) InsertRoutes(routes []StoredRoute) ([]uuid.UUID, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO routes (id, name, description, source, tolerance, original_points, geom)
		VALUES ($1, $2, $3, $4, $5, $6, ST_GeomFromText($7, 4326))
	`)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	ids := make([]uuid.UUID, len(routes))
	for i, r := range routes {
		geom, err := RouteWKT(r.Route.Points)
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("route %q: %w", r.Route.Name, err)
		}

		id := r.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		// stored as -1 when the route was reduced by point count only
		tol := r.Tolerance
		if math.IsInf(tol, 1) {
			tol = -1
		}

		if _, err := stmt.Exec(id, r.Route.Name, r.Route.Description, r.Source, tol, r.OriginalPoints, geom); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to insert route %q: %w", r.Route.Name, err)
		}
		ids[i] = id
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit routes: %w", err)
	}
	return ids, nil
}

// QueryBox returns summaries of routes whose geometry intersects box
func (s *RouteStore) QueryBox(box models.BoundingBox) ([]Summary, error) {
	query := `
		SELECT id, name, source, ST_NPoints(geom), ST_Length(geom::geography), created_at
		FROM routes
		WHERE geom && ST_MakeEnvelope($1, $2, $3, $4, 4326)
		ORDER BY created_at, id
	`

	rows, err := s.db.Query(query,
		box.BottomLeft.Lon, box.BottomLeft.Lat,
		box.TopRight.Lon, box.TopRight.Lat)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var results []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.Source, &sum.Points, &sum.LengthM, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return results, nil
}

// Get loads a stored route with its geometry. Elevation and time are not stored.
func (s *RouteStore) Get(id uuid.UUID) (StoredRoute, error) {
	var (
		r    StoredRoute
		geom string
	)
	err := s.db.QueryRow(`
		SELECT id, name, description, source, tolerance, original_points, ST_AsText(geom), created_at
		FROM routes WHERE id = $1
	`, id).Scan(&r.ID, &r.Route.Name, &r.Route.Description, &r.Source, &r.Tolerance, &r.OriginalPoints, &geom, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredRoute{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return StoredRoute{}, fmt.Errorf("failed to load route %s: %w", id, err)
	}

	points, err := ParseRouteWKT(geom)
	if err != nil {
		return StoredRoute{}, fmt.Errorf("route %s: %w", id, err)
	}
	r.Route.Points = points
	return r, nil
}

// Count returns the number of stored routes
func (s *RouteStore) Count() (int64, error) {
	var count int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM routes").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count routes: %w", err)
	}
	return count, nil
}

// GetDatabaseStats returns database size and routes table statistics
func (s *RouteStore) GetDatabaseStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var dbSize string
	err := s.db.QueryRow(`SELECT pg_size_pretty(pg_database_size(current_database()))`).Scan(&dbSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get database size: %w", err)
	}
	stats["database_size"] = dbSize

	var tableSize, indexSize string
	err = s.db.QueryRow(`
		SELECT
			pg_size_pretty(pg_total_relation_size('routes')) as total_size,
			pg_size_pretty(pg_indexes_size('routes')) as index_size
	`).Scan(&tableSize, &indexSize)
	if err != nil {
		// table might not exist yet
		stats["table_size"] = "0 bytes"
		stats["index_size"] = "0 bytes"
		stats["row_count"] = int64(0)
		return stats, nil
	}
	stats["table_size"] = tableSize
	stats["index_size"] = indexSize

	count, err := s.Count()
	if err != nil {
		return nil, err
	}
	stats["row_count"] = count

	return stats, nil
}

// Close closes the database connection
func (s *RouteStore) Close() error {
	return s.db.Close()
}

// RouteWKT renders points as a WKT LINESTRING. A single point is doubled,
// since a LINESTRING needs two vertices.
func RouteWKT(points []models.TrackPoint) (string, error) {
	switch len(points) {
	case 0:
		return "", errors.New("cannot store an empty route")
	case 1:
		points = []models.TrackPoint{points[0], points[0]}
	}
	return wkt.MarshalString(export.LineString(points)), nil
}

// ParseRouteWKT reads a WKT LINESTRING back into route points
func ParseRouteWKT(s string) ([]models.TrackPoint, error) {
	ls, err := wkt.UnmarshalLineString(s)
	if err != nil {
		return nil, fmt.Errorf("parse geometry: %w", err)
	}
	return fromLineString(ls), nil
}

func fromLineString(ls orb.LineString) []models.TrackPoint {
	points := make([]models.TrackPoint, len(ls))
	for i, p := range ls {
		points[i] = models.TrackPoint{Location: models.Location{Lat: p.Lat(), Lon: p.Lon()}}
	}
	return points
}
