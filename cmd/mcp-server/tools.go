package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/patrickwarner/bannerrotator/internal/logic/filters"
	"github.com/patrickwarner/bannerrotator/internal/logic/selectors"
	"github.com/patrickwarner/bannerrotator/internal/models"
)

const (
	defaultDraws = 1000
	maxDraws     = 100000
)

// placeLister is satisfied by *db.Postgres and *models.InMemoryStore.
type placeLister interface {
	ListPlaces(ctx context.Context) ([]models.Place, error)
}

// RotatorTools exposes read-only views of the rotation state to MCP clients.
type RotatorTools struct {
	banners models.BannerStore
	places  placeLister
	logger  *zap.Logger
	now     func() time.Time
	seed    int64
}

type ListPlacesInput struct{}

type PlaceSummary struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	Slug            string `json:"slug"`
	Size            string `json:"size,omitempty"`
	EligibleBanners int    `json:"eligible_banners"`
	TotalWeight     int    `json:"total_weight"`
}

type ListPlacesOutput struct {
	Places []PlaceSummary `json:"places"`
}

type PreviewSelectionInput struct {
	PlaceID int   `json:"place_id" jsonschema:"place to simulate selection for"`
	Draws   int   `json:"draws,omitempty" jsonschema:"number of simulated selections, defaults to 1000"`
	Seed    int64 `json:"seed,omitempty" jsonschema:"random seed for a reproducible preview"`
}

type BannerShare struct {
	BannerID int    `json:"banner_id"`
	Name     string `json:"name"`
	Weight   int    `json:"weight"`
	Expected string `json:"expected_share"`
	Picks    int    `json:"picks"`
	Observed string `json:"observed_share"`
}

type PreviewSelectionOutput struct {
	PlaceID int           `json:"place_id"`
	Draws   int           `json:"draws"`
	Banners []BannerShare `json:"banners"`
}

type BannerStatsInput struct {
	BannerID int `json:"banner_id,omitempty" jsonschema:"banner to report on, all banners when omitted"`
}

type BannerStat struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Active   bool   `json:"active"`
	Views    string `json:"views"`
	Clicks   string `json:"clicks"`
	CTR      string `json:"ctr"`
	PlaceIDs []int  `json:"place_ids"`
}

type BannerStatsOutput struct {
	Banners []BannerStat `json:"banners"`
}

func (t *RotatorTools) clock() time.Time {
	if t.now != nil {
		return t.now()
	}
	return time.Now()
}

// ListPlaces reports every place with the size and weight of its current
// eligible banner pool.
func (t *RotatorTools) ListPlaces(ctx context.Context, req *mcp.CallToolRequest, input ListPlacesInput) (*mcp.CallToolResult, ListPlacesOutput, error) {
	places, err := t.places.ListPlaces(ctx)
	if err != nil {
		return nil, ListPlacesOutput{}, fmt.Errorf("list places: %w", err)
	}

	out := ListPlacesOutput{Places: []PlaceSummary{}}
	now := t.clock()
	for i := range places {
		p := places[i]
		q := filters.Eligibility(p.ID, now)
		eligible, err := t.banners.EligibleBanners(ctx, q)
		if err != nil {
			return nil, ListPlacesOutput{}, fmt.Errorf("eligible banners for place %d: %w", p.ID, err)
		}
		sum, err := t.banners.WeightSum(ctx, q)
		if err != nil {
			return nil, ListPlacesOutput{}, fmt.Errorf("weight sum for place %d: %w", p.ID, err)
		}
		out.Places = append(out.Places, PlaceSummary{
			ID:              p.ID,
			Name:            p.Name,
			Slug:            p.Slug,
			Size:            p.SizeString(),
			EligibleBanners: len(eligible),
			TotalWeight:     sum,
		})
	}
	return nil, out, nil
}

// PreviewSelection runs the weighted picker repeatedly over the eligible
// banners of a place without recording any views.
func (t *RotatorTools) PreviewSelection(ctx context.Context, req *mcp.CallToolRequest, input PreviewSelectionInput) (*mcp.CallToolResult, PreviewSelectionOutput, error) {
	draws := input.Draws
	if draws <= 0 {
		draws = defaultDraws
	}
	if draws > maxDraws {
		draws = maxDraws
	}

	eligible, err := filters.EligibleBanners(ctx, t.banners, input.PlaceID, t.clock())
	if err != nil {
		return nil, PreviewSelectionOutput{}, err
	}

	candidates := make([]selectors.Candidate[int], len(eligible))
	total := 0
	for i, b := range eligible {
		candidates[i] = selectors.Candidate[int]{Item: i, Weight: b.Weight}
		total += b.Weight
	}

	seed := input.Seed
	if seed == 0 {
		seed = t.seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	src := rand.New(rand.NewSource(seed))

	picks := make([]int, len(eligible))
	for n := 0; n < draws; n++ {
		idx, err := selectors.Pick(candidates, selectors.RandomDraw(src))
		if err != nil {
			return nil, PreviewSelectionOutput{}, fmt.Errorf("preview place %d: %w", input.PlaceID, err)
		}
		picks[idx]++
	}

	out := PreviewSelectionOutput{PlaceID: input.PlaceID, Draws: draws, Banners: make([]BannerShare, 0, len(eligible))}
	for i, b := range eligible {
		out.Banners = append(out.Banners, BannerShare{
			BannerID: b.ID,
			Name:     b.Name,
			Weight:   b.Weight,
			Expected: share(int64(b.Weight), int64(total)),
			Picks:    picks[i],
			Observed: share(int64(picks[i]), int64(draws)),
		})
	}
	t.logger.Debug("selection preview",
		zap.Int("place_id", input.PlaceID),
		zap.Int("candidates", len(eligible)),
		zap.Int("draws", draws))
	return nil, out, nil
}

// BannerStats reports counters and click-through rate for one or all banners.
func (t *RotatorTools) BannerStats(ctx context.Context, req *mcp.CallToolRequest, input BannerStatsInput) (*mcp.CallToolResult, BannerStatsOutput, error) {
	var banners []models.Banner
	if input.BannerID != 0 {
		b, err := t.banners.GetBanner(ctx, input.BannerID)
		if err != nil {
			return nil, BannerStatsOutput{}, fmt.Errorf("banner %d: %w", input.BannerID, err)
		}
		banners = []models.Banner{*b}
	} else {
		all, err := t.banners.ListBanners(ctx)
		if err != nil {
			return nil, BannerStatsOutput{}, fmt.Errorf("list banners: %w", err)
		}
		banners = all
	}

	out := BannerStatsOutput{Banners: make([]BannerStat, 0, len(banners))}
	for i := range banners {
		b := &banners[i]
		out.Banners = append(out.Banners, BannerStat{
			ID:       b.ID,
			Name:     b.Name,
			Active:   b.IsActive,
			Views:    b.ViewsString(),
			Clicks:   b.ClicksString(),
			CTR:      share(int64(b.Clicks), int64(b.Views)),
			PlaceIDs: b.PlaceIDs,
		})
	}
	return nil, out, nil
}

// share renders part/whole as a percentage with two decimals.
func share(part, whole int64) string {
	if whole <= 0 {
		return "0.00%"
	}
	pct := decimal.NewFromInt(part).Mul(decimal.NewFromInt(100)).DivRound(decimal.NewFromInt(whole), 2)
	return pct.StringFixed(2) + "%"
}

// registerTools adds the rotator tools to server.
func registerTools(server *mcp.Server, tools *RotatorTools) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_places",
		Description: "List banner places with the number and total weight of currently eligible banners",
	}, tools.ListPlaces)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "preview_selection",
		Description: "Simulate weighted banner selection for a place without recording views",
	}, tools.PreviewSelection)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "banner_stats",
		Description: "Report view and click counters and click-through rate for banners",
	}, tools.BannerStats)
}
