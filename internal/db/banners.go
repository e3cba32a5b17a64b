package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/patrickwarner/bannerrotator/internal/models"
)

// ErrUnsupportedClause is returned when an eligibility query carries a
// clause the SQL renderer does not know.
var ErrUnsupportedClause = errors.New("unsupported eligibility clause")

var (
	_ models.BannerStore = (*Postgres)(nil)
	_ models.PlaceStore  = (*Postgres)(nil)
	_ models.ClickStore  = (*Postgres)(nil)
)

const bannerSelect = `SELECT b.id, b.campaign_id, b.name, b.alt, b.url, b.url_target, b.views, b.clicks,
       b.max_views, b.max_clicks, b.weight, b.file, b.start_at, b.finish_at, b.timeout,
       b.show_any_time, b.is_active, b.created_at, b.updated_at,
       COALESCE((SELECT array_agg(bp.place_id ORDER BY bp.place_id) FROM banner_places bp WHERE bp.banner_id = b.id), '{}')
  FROM banners b`

// renderEligibility turns q into a WHERE clause with positional arguments.
func renderEligibility(q models.EligibilityQuery) (string, []any, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	for _, c := range q.Clauses {
		switch c {
		case models.ClauseActive:
			conds = append(conds, "b.is_active")
		case models.ClausePlace:
			conds = append(conds, "EXISTS (SELECT 1 FROM banner_places bp WHERE bp.banner_id = b.id AND bp.place_id = "+arg(q.PlaceID)+")")
		case models.ClauseStarted:
			conds = append(conds, "(b.start_at IS NULL OR b.start_at <= "+arg(q.Now)+")")
		case models.ClauseNotFinished:
			conds = append(conds, "(b.finish_at IS NULL OR b.finish_at >= "+arg(q.Now)+")")
		case models.ClauseViewsUnderCap:
			conds = append(conds, "(b.max_views = 0 OR b.views < b.max_views)")
		case models.ClauseClicksUnderCap:
			conds = append(conds, "(b.max_clicks = 0 OR b.clicks < b.max_clicks)")
		default:
			return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedClause, c)
		}
	}
	if len(conds) == 0 {
		return "TRUE", nil, nil
	}
	return strings.Join(conds, " AND "), args, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBanner(row rowScanner) (models.Banner, error) {
	var (
		b          models.Banner
		campaignID sql.NullInt64
		start, end sql.NullTime
		places     pq.Int64Array
	)
	if err := row.Scan(&b.ID, &campaignID, &b.Name, &b.Alt, &b.URL, &b.URLTarget, &b.Views, &b.Clicks,
		&b.MaxViews, &b.MaxClicks, &b.Weight, &b.File, &start, &end, &b.Timeout,
		&b.ShowAnyTime, &b.IsActive, &b.CreatedAt, &b.UpdatedAt, &places); err != nil {
		return b, err
	}
	if campaignID.Valid {
		id := int(campaignID.Int64)
		b.CampaignID = &id
	}
	if start.Valid {
		t := start.Time
		b.StartAt = &t
	}
	if end.Valid {
		t := end.Time
		b.FinishAt = &t
	}
	b.PlaceIDs = make([]int, len(places))
	for i, id := range places {
		b.PlaceIDs[i] = int(id)
	}
	return b, nil
}

func (p *Postgres) queryBanners(ctx context.Context, query string, args ...any) ([]models.Banner, error) {
	rows, err := p.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query banners: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var banners []models.Banner
	for rows.Next() {
		b, err := scanBanner(rows)
		if err != nil {
			return nil, fmt.Errorf("scan banner: %w", err)
		}
		banners = append(banners, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate banners: %w", err)
	}
	return banners, nil
}

// EligibleBanners returns the banners matching q ordered by ID.
func (p *Postgres) EligibleBanners(ctx context.Context, q models.EligibilityQuery) ([]models.Banner, error) {
	where, args, err := renderEligibility(q)
	if err != nil {
		return nil, err
	}
	return p.queryBanners(ctx, bannerSelect+" WHERE "+where+" ORDER BY b.id", args...)
}

// WeightSum totals the weight of the banners matching q.
func (p *Postgres) WeightSum(ctx context.Context, q models.EligibilityQuery) (int, error) {
	where, args, err := renderEligibility(q)
	if err != nil {
		return 0, err
	}
	var sum int
	if err := p.DB.QueryRowContext(ctx, "SELECT COALESCE(SUM(b.weight), 0) FROM banners b WHERE "+where, args...).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum weights: %w", err)
	}
	return sum, nil
}

// GetBanner loads a single banner or returns models.ErrNotFound.
func (p *Postgres) GetBanner(ctx context.Context, id int) (*models.Banner, error) {
	b, err := scanBanner(p.DB.QueryRowContext(ctx, bannerSelect+" WHERE b.id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get banner %d: %w", id, err)
	}
	return &b, nil
}

// ListBanners returns every banner ordered by ID.
func (p *Postgres) ListBanners(ctx context.Context) ([]models.Banner, error) {
	return p.queryBanners(ctx, bannerSelect+" ORDER BY b.id")
}

// IncrementViews adds one to the view counter in a single statement so that
// concurrent requests never lose an update.
func (p *Postgres) IncrementViews(ctx context.Context, id int) error {
	return p.increment(ctx, "views", id)
}

// IncrementClicks adds one to the click counter.
func (p *Postgres) IncrementClicks(ctx context.Context, id int) error {
	return p.increment(ctx, "clicks", id)
}

func (p *Postgres) increment(ctx context.Context, column string, id int) error {
	res, err := p.DB.ExecContext(ctx, `UPDATE banners SET `+column+` = `+column+` + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment %s: %w", column, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment %s: %w", column, err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// InsertBanner stores b and its place associations in one transaction.
func (p *Postgres) InsertBanner(ctx context.Context, b *models.Banner) error {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert banner: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	weight := b.Weight
	if weight == 0 {
		weight = models.DefaultWeight
	}
	err = tx.QueryRowContext(ctx, `INSERT INTO banners (campaign_id, name, alt, url, url_target, max_views, max_clicks, weight, file, start_at, finish_at, timeout, show_any_time, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14) RETURNING id, created_at, updated_at`,
		b.CampaignID, b.Name, b.Alt, b.URL, b.URLTarget, b.MaxViews, b.MaxClicks, weight, b.File,
		b.StartAt, b.FinishAt, b.Timeout, b.ShowAnyTime, b.IsActive).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert banner: %w", err)
	}
	b.Weight = weight
	for _, placeID := range b.PlaceIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO banner_places (banner_id, place_id) VALUES ($1, $2)`, b.ID, placeID); err != nil {
			return fmt.Errorf("link banner %d to place %d: %w", b.ID, placeID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert banner: %w", err)
	}
	return nil
}
