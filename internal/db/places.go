package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/patrickwarner/bannerrotator/internal/models"
)

const placeSelect = `SELECT id, name, slug, width, height FROM places`

func scanPlace(row rowScanner) (models.Place, error) {
	var (
		pl            models.Place
		width, height sql.NullInt64
	)
	if err := row.Scan(&pl.ID, &pl.Name, &pl.Slug, &width, &height); err != nil {
		return pl, err
	}
	if width.Valid {
		w := int(width.Int64)
		pl.Width = &w
	}
	if height.Valid {
		h := int(height.Int64)
		pl.Height = &h
	}
	return pl, nil
}

func (p *Postgres) findPlace(ctx context.Context, where string, arg any) (*models.Place, error) {
	pl, err := scanPlace(p.DB.QueryRowContext(ctx, placeSelect+" WHERE "+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find place: %w", err)
	}
	return &pl, nil
}

// FindPlaceByID returns the place or nil when it does not exist.
func (p *Postgres) FindPlaceByID(ctx context.Context, id int) (*models.Place, error) {
	return p.findPlace(ctx, "id = $1", id)
}

// FindPlaceBySlug returns the place or nil when no place has the slug.
func (p *Postgres) FindPlaceBySlug(ctx context.Context, slug string) (*models.Place, error) {
	return p.findPlace(ctx, "slug = $1", strings.TrimSpace(slug))
}

// ListPlaces returns all places ordered by ID.
func (p *Postgres) ListPlaces(ctx context.Context) ([]models.Place, error) {
	rows, err := p.DB.QueryContext(ctx, placeSelect+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query places: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var places []models.Place
	for rows.Next() {
		pl, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan place: %w", err)
		}
		places = append(places, pl)
	}
	return places, rows.Err()
}

// InsertPlace creates a new place record and sets its ID.
func (p *Postgres) InsertPlace(ctx context.Context, pl *models.Place) error {
	return p.DB.QueryRowContext(ctx,
		`INSERT INTO places (name, slug, width, height) VALUES ($1, $2, $3, $4) RETURNING id`,
		pl.Name, pl.Slug, pl.Width, pl.Height).Scan(&pl.ID)
}

// InsertCampaign creates a new campaign record and sets its ID.
func (p *Postgres) InsertCampaign(ctx context.Context, c *models.Campaign) error {
	return p.DB.QueryRowContext(ctx,
		`INSERT INTO campaigns (name) VALUES ($1) RETURNING id, created_at, updated_at`,
		c.Name).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

// InsertClick stores c and sets its ID.
func (p *Postgres) InsertClick(ctx context.Context, c *models.Click) error {
	err := p.DB.QueryRowContext(ctx,
		`INSERT INTO clicks (banner_id, place_id, user_id, datetime, ip, user_agent, referrer) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		c.BannerID, c.PlaceID, c.UserID, c.Datetime, c.IP, models.TruncateUserAgent(c.UserAgent), c.Referrer).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert click: %w", err)
	}
	return nil
}

// CountClicks returns the number of click records for a banner.
func (p *Postgres) CountClicks(ctx context.Context, bannerID int) (int, error) {
	var n int
	if err := p.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM clicks WHERE banner_id = $1`, bannerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count clicks: %w", err)
	}
	return n, nil
}
