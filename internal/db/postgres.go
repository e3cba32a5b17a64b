package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Postgres wraps a postgres DB connection.
type Postgres struct {
	DB *sql.DB
}

// schemaSQL sets up the necessary tables if they don't exist.
const schemaSQL = `CREATE TABLE IF NOT EXISTS campaigns (
    id SERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS places (
    id SERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    slug VARCHAR(255) NOT NULL UNIQUE,
    width INT NULL,
    height INT NULL
);

CREATE TABLE IF NOT EXISTS banners (
    id SERIAL PRIMARY KEY,
    campaign_id INT NULL REFERENCES campaigns(id) ON DELETE SET NULL,
    name VARCHAR(255) NOT NULL,
    alt VARCHAR(255) NOT NULL DEFAULT '',
    url VARCHAR(1024) NOT NULL DEFAULT '',
    url_target VARCHAR(10) NOT NULL DEFAULT '',
    views INT NOT NULL DEFAULT 0 CHECK (views >= 0),
    clicks INT NOT NULL DEFAULT 0 CHECK (clicks >= 0),
    max_views INT NOT NULL DEFAULT 0,
    max_clicks INT NOT NULL DEFAULT 0,
    weight INT NOT NULL DEFAULT 5 CHECK (weight BETWEEN 1 AND 10),
    file VARCHAR(255) NOT NULL DEFAULT '',
    start_at TIMESTAMP NULL,
    finish_at TIMESTAMP NULL,
    timeout INT NOT NULL DEFAULT 0,
    show_any_time BOOLEAN NOT NULL DEFAULT FALSE,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS banner_places (
    banner_id INT NOT NULL REFERENCES banners(id) ON DELETE CASCADE,
    place_id INT NOT NULL REFERENCES places(id) ON DELETE CASCADE,
    PRIMARY KEY (banner_id, place_id)
);

CREATE TABLE IF NOT EXISTS clicks (
    id BIGSERIAL PRIMARY KEY,
    banner_id INT NOT NULL REFERENCES banners(id) ON DELETE CASCADE,
    place_id INT NULL REFERENCES places(id) ON DELETE SET NULL,
    user_id INT NULL,
    datetime TIMESTAMP NOT NULL,
    ip TEXT NOT NULL DEFAULT '',
    user_agent VARCHAR(1000) NOT NULL DEFAULT '',
    referrer TEXT NOT NULL DEFAULT ''
);

-- Indexes for banner selection
CREATE INDEX IF NOT EXISTS idx_banners_active_window ON banners (is_active, start_at, finish_at) WHERE is_active = true;
CREATE INDEX IF NOT EXISTS idx_banner_places_place_id ON banner_places (place_id);
CREATE INDEX IF NOT EXISTS idx_clicks_banner_id ON clicks (banner_id);
`

// InitPostgres connects to Postgres with connection pooling configuration.
func InitPostgres(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (*Postgres, error) {
	// Register the otelsql wrapper for postgres
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(
			attribute.String("db.system", "postgresql"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	p := &Postgres{DB: db}
	if err := p.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	zap.L().Info("Connected to Postgres with connection pooling",
		zap.Int("max_open_conns", maxOpenConns),
		zap.Int("max_idle_conns", maxIdleConns),
		zap.Duration("conn_max_lifetime", connMaxLifetime))
	return p, nil
}

// Close terminates the Postgres connection.
func (p *Postgres) Close() {
	if p != nil && p.DB != nil {
		if err := p.DB.Close(); err != nil {
			zap.L().Error("postgres close", zap.Error(err))
		}
	}
}

// ensureSchema creates the required tables if they do not exist.
func (p *Postgres) ensureSchema(ctx context.Context) error {
	if _, err := p.DB.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
