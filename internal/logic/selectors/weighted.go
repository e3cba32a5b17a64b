package selectors

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	logic "github.com/patrickwarner/bannerrotator/internal/logic"
	filters "github.com/patrickwarner/bannerrotator/internal/logic/filters"
	"github.com/patrickwarner/bannerrotator/internal/models"
	"github.com/patrickwarner/bannerrotator/internal/observability"
)

var tracer = otel.Tracer("bannerrotator/selectors")

// WeightedSelector is the default Selector. It fetches the eligible banners
// for a place and picks one with probability proportional to its weight.
type WeightedSelector struct {
	store   models.BannerStore
	metrics observability.MetricsRegistry
	logger  *zap.Logger
	now     func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

var _ Selector = (*WeightedSelector)(nil)

// NewWeightedSelector constructs a WeightedSelector reading from store.
func NewWeightedSelector(store models.BannerStore) *WeightedSelector {
	return &WeightedSelector{
		store:   store,
		metrics: observability.NewNoOpRegistry(),
		logger:  zap.NewNop(),
		now:     time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetLogger configures the logger for this selector.
func (s *WeightedSelector) SetLogger(logger *zap.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetMetrics configures the metrics registry for this selector.
func (s *WeightedSelector) SetMetrics(metrics observability.MetricsRegistry) {
	if metrics != nil {
		s.metrics = metrics
	}
}

// SetRandSource replaces the random source. Tests use a fixed seed.
func (s *WeightedSelector) SetRandSource(src rand.Source) {
	s.mu.Lock()
	s.rng = rand.New(src)
	s.mu.Unlock()
}

// SetClock overrides the time used for eligibility checks.
func (s *WeightedSelector) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// SelectBanner chooses a banner for placeID. It returns ErrNotFound when no
// banner qualifies and ErrInvalidState when the weights sum to zero.
func (s *WeightedSelector) SelectBanner(ctx context.Context, placeID int) (*models.Banner, error) {
	return s.performSelection(ctx, placeID, nil)
}

// SelectBannerWithTrace behaves like SelectBanner but records the candidate
// list at each stage in trace.
func (s *WeightedSelector) SelectBannerWithTrace(ctx context.Context, placeID int, trace *logic.SelectionTrace) (*models.Banner, error) {
	return s.performSelection(ctx, placeID, trace)
}

func (s *WeightedSelector) performSelection(ctx context.Context, placeID int, trace *logic.SelectionTrace) (*models.Banner, error) {
	ctx, span := tracer.Start(ctx, "selectors.SelectBanner")
	defer span.End()
	span.SetAttributes(attribute.Int("place.id", placeID))

	start := time.Now()
	defer func() { s.metrics.RecordSelectionLatency(time.Since(start)) }()

	banners, err := filters.EligibleBanners(ctx, s.store, placeID, s.now())
	if err != nil {
		s.metrics.IncrementSelections(observability.SelectionResultError)
		span.RecordError(err)
		return nil, err
	}
	s.metrics.RecordCandidates(len(banners))
	span.SetAttributes(attribute.Int("candidates", len(banners)))
	trace.AddStep("eligible", banners)

	if len(banners) == 0 {
		s.metrics.IncrementSelections(observability.SelectionResultNotFound)
		return nil, ErrNotFound
	}

	candidates := make([]Candidate[int], len(banners))
	for i, b := range banners {
		candidates[i] = Candidate[int]{Item: i, Weight: b.Weight}
	}

	s.mu.Lock()
	r := RandomDraw(s.rng)
	s.mu.Unlock()

	idx, err := Pick(candidates, r)
	if err != nil {
		if errors.Is(err, ErrInvalidState) {
			s.metrics.IncrementSelections(observability.SelectionResultInvalidState)
			s.logger.Warn("eligible banners carry no weight",
				zap.Int("place_id", placeID),
				zap.Int("candidates", len(banners)))
		}
		return nil, err
	}

	chosen := banners[idx]
	trace.AddStepWithDetails("pick", []models.Banner{chosen}, map[string]string{"draw": r.String()})
	s.metrics.IncrementSelections(observability.SelectionResultSelected)
	span.SetAttributes(attribute.String("banner.id", strconv.Itoa(chosen.ID)))

	if observability.ShouldSample(observability.GetSamplingRate()) {
		s.logger.Debug("banner selected",
			zap.Int("place_id", placeID),
			zap.Int("banner_id", chosen.ID),
			zap.Int("candidates", len(banners)))
	}
	return &chosen, nil
}
