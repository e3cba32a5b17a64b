package logic

import "github.com/patrickwarner/bannerrotator/internal/models"

// TraceStep records the candidate banners and their weights at a selection stage.
type TraceStep struct {
	Stage     string            `json:"stage"`
	BannerIDs []int             `json:"banner_ids"`
	Weights   []int             `json:"weights,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// SelectionTrace captures the ordered list of steps performed by a selector.
type SelectionTrace struct {
	Steps []TraceStep `json:"steps"`
}

// AddStep appends a trace entry for the given stage using the supplied banners.
func (t *SelectionTrace) AddStep(stage string, banners []models.Banner) {
	t.AddStepWithDetails(stage, banners, nil)
}

// AddStepWithDetails appends a trace entry with additional details.
func (t *SelectionTrace) AddStepWithDetails(stage string, banners []models.Banner, details map[string]string) {
	if t == nil {
		return
	}
	step := TraceStep{Stage: stage, Details: details}
	for _, b := range banners {
		step.BannerIDs = append(step.BannerIDs, b.ID)
		step.Weights = append(step.Weights, b.Weight)
	}
	t.Steps = append(t.Steps, step)
}

// Stage returns the first step recorded under name.
func (t *SelectionTrace) Stage(name string) (TraceStep, bool) {
	if t == nil {
		return TraceStep{}, false
	}
	for _, s := range t.Steps {
		if s.Stage == name {
			return s, true
		}
	}
	return TraceStep{}, false
}
