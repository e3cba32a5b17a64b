package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/patrickwarner/bannerrotator/internal/config"
	"github.com/patrickwarner/bannerrotator/internal/db"
	"github.com/patrickwarner/bannerrotator/internal/models"
	"github.com/patrickwarner/bannerrotator/internal/observability"
)

var (
	campaignCount = flag.Int("campaigns", 5, "number of campaigns")
	bannersPer    = flag.Int("banners", 4, "banners per campaign")
	seed          = flag.Int64("seed", time.Now().UnixNano(), "rng seed")
	skipReload    = flag.Bool("skip-reload", false, "skip automatic reload after data insertion")
)

// demoPlaces are created once; later runs reuse them by slug.
var demoPlaces = []models.Place{
	{Name: "Header leaderboard", Slug: "header", Width: intPtr(728), Height: intPtr(90)},
	{Name: "Sidebar rectangle", Slug: "sidebar", Width: intPtr(300), Height: intPtr(250)},
	{Name: "Footer strip", Slug: "footer", Width: intPtr(468)},
	{Name: "In-article", Slug: "article"},
}

func main() {
	flag.Parse()

	logger, err := observability.InitLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg := config.Load()
	pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect postgres: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	ctx := context.Background()
	r := rand.New(rand.NewSource(*seed))

	places, err := ensurePlaces(ctx, pg)
	if err != nil {
		logger.Fatal("insert places", zap.Error(err))
	}

	banners := 0
	for c := 0; c < *campaignCount; c++ {
		camp := models.Campaign{Name: fakeCampaignName(r)}
		if err := pg.InsertCampaign(ctx, &camp); err != nil {
			logger.Fatal("insert campaign", zap.Error(err))
		}

		for b := 0; b < *bannersPer; b++ {
			banner := randomBanner(r, camp.ID, places)
			if err := pg.InsertBanner(ctx, &banner); err != nil {
				logger.Fatal("insert banner", zap.Error(err))
			}
			banners++
		}
	}

	logger.Info("fake data inserted",
		zap.Int("places", len(places)),
		zap.Int("campaigns", *campaignCount),
		zap.Int("banners", banners))
	fmt.Println("fake data inserted")

	if !*skipReload {
		if err := callReloadEndpoint(&cfg); err != nil {
			logger.Error("reload endpoint failed", zap.Error(err))
			fmt.Fprintf(os.Stderr, "Warning: failed to reload server data: %v\n", err)
		} else {
			fmt.Println("server data reloaded")
		}
	}
}

func ensurePlaces(ctx context.Context, pg *db.Postgres) ([]models.Place, error) {
	out := make([]models.Place, 0, len(demoPlaces))
	for _, p := range demoPlaces {
		existing, err := pg.FindPlaceBySlug(ctx, p.Slug)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			out = append(out, *existing)
			continue
		}
		pl := p
		if err := pg.InsertPlace(ctx, &pl); err != nil {
			return nil, fmt.Errorf("insert place %q: %w", p.Slug, err)
		}
		out = append(out, pl)
	}
	return out, nil
}

// random helpers

func intPtr(v int) *int { return &v }

func fakeCampaignName(r *rand.Rand) string {
	seasons := []string{"Spring", "Summer", "Fall", "Winter", "Holiday"}
	products := []string{"Sale", "Launch", "Promo", "Special"}
	return fmt.Sprintf("%s %s %d", seasons[r.Intn(len(seasons))], products[r.Intn(len(products))], r.Intn(100))
}

var landingDomains = []string{"shop.example.com", "travel.example.net", "news.example.org", "games.example.io"}
var creativeExts = []string{".png", ".jpg", ".gif", ".swf"}

func randomBanner(r *rand.Rand, campaignID int, places []models.Place) models.Banner {
	now := time.Now()
	b := models.Banner{
		CampaignID:  &campaignID,
		Name:        fmt.Sprintf("Banner %d", r.Intn(10000)),
		Alt:         "Sponsored",
		URL:         fmt.Sprintf("https://%s/landing?utm_source=rotator&c=%d", landingDomains[r.Intn(len(landingDomains))], campaignID),
		URLTarget:   []string{models.URLTargetSelf, models.URLTargetBlank, ""}[r.Intn(3)],
		Weight:      models.MinWeight + r.Intn(models.MaxWeight),
		File:        models.CreativeFileName(fmt.Sprintf("creative%d%s", r.Intn(1000), creativeExts[r.Intn(len(creativeExts))]), now),
		ShowAnyTime: r.Intn(5) == 0,
		IsActive:    r.Intn(10) != 0,
	}

	// A quarter of banners are capped, a quarter are scheduled.
	switch r.Intn(4) {
	case 0:
		b.MaxViews = 1000 + r.Intn(9000)
		b.MaxClicks = r.Intn(200)
	case 1:
		start := now.Add(-time.Duration(r.Intn(72)) * time.Hour)
		finish := now.Add(time.Duration(24+r.Intn(24*14)) * time.Hour)
		b.StartAt = &start
		b.FinishAt = &finish
	}

	// Every banner runs in at least one place.
	perm := r.Perm(len(places))
	n := 1 + r.Intn(len(places))
	for _, i := range perm[:n] {
		b.PlaceIDs = append(b.PlaceIDs, places[i].ID)
	}
	return b
}

func callReloadEndpoint(cfg *config.Config) error {
	reloadURL := fmt.Sprintf("http://localhost:%s/reload", cfg.Port)
	req, err := http.NewRequest("POST", reloadURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return nil
}
