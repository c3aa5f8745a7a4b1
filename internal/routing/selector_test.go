package routing

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/af-corp/compass-router/internal/store"
	"github.com/af-corp/compass-router/internal/types"
)

type fakePricingStore struct {
	pricing map[string]*types.ModelPricing
	tags    []types.CapabilityTag
}

func (f *fakePricingStore) GetPricing(ctx context.Context, model string) (*types.ModelPricing, error) {
	p, ok := f.pricing[model]
	if !ok {
		return nil, &store.Error{Kind: store.KindNotFound, Entity: "model_pricing", Key: model}
	}
	return p, nil
}

func (f *fakePricingStore) ListCapabilityTags(ctx context.Context) ([]types.CapabilityTag, error) {
	return f.tags, nil
}

func pricingFixture(model string, inputPrice, outputPrice, score float64) *types.ModelPricing {
	return &types.ModelPricing{
		Model:           model,
		Vendor:          "test",
		InputPrice:      inputPrice,
		OutputPrice:     outputPrice,
		ReasoningScore:  score,
		CodingScore:     score,
		CreativityScore: score,
		SpeedScore:      score,
		IsEnabled:       true,
	}
}

func newTestSelector(ps *fakePricingStore) *Selector {
	return NewSelector(ps, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSelector_CheaperWinsAtEqualScores(t *testing.T) {
	ps := &fakePricingStore{pricing: map[string]*types.ModelPricing{
		"cheap":  pricingFixture("cheap", 1, 2, 80),
		"pricey": pricingFixture("pricey", 30, 60, 80),
	}}
	s := newTestSelector(ps)
	strategy := &types.CostStrategy{StrategyID: "balanced", CostWeight: 0.5, PerformanceWeight: 0.3, CapabilityWeight: 0.2}

	sel, err := s.SelectOptimal(context.Background(), strategy, []string{"pricey", "cheap"}, "")
	if err != nil {
		t.Fatalf("SelectOptimal: %v", err)
	}
	if sel.SelectedModel != "cheap" {
		t.Errorf("expected cheap to win with equal scores and positive cost weight, got %q", sel.SelectedModel)
	}
}

func TestSelector_ZeroCostWeightIgnoresPrice(t *testing.T) {
	ps := &fakePricingStore{pricing: map[string]*types.ModelPricing{
		"cheap-weak":    pricingFixture("cheap-weak", 0.5, 1, 60),
		"pricey-strong": pricingFixture("pricey-strong", 40, 80, 95),
	}}
	s := newTestSelector(ps)
	strategy := &types.CostStrategy{StrategyID: "performance", CostWeight: 0, PerformanceWeight: 0.8, CapabilityWeight: 0.2}

	sel, err := s.SelectOptimal(context.Background(), strategy, []string{"cheap-weak", "pricey-strong"}, "reasoning")
	if err != nil {
		t.Fatalf("SelectOptimal: %v", err)
	}
	if sel.SelectedModel != "pricey-strong" {
		t.Errorf("with cost weight 0 the stronger model must win, got %q", sel.SelectedModel)
	}
}

func TestSelector_TieKeepsEarlierCandidate(t *testing.T) {
	ps := &fakePricingStore{pricing: map[string]*types.ModelPricing{
		"first":  pricingFixture("first", 5, 5, 70),
		"second": pricingFixture("second", 5, 5, 70),
	}}
	s := newTestSelector(ps)
	strategy := &types.CostStrategy{StrategyID: "balanced", CostWeight: 0.5, PerformanceWeight: 0.5}

	sel, err := s.SelectOptimal(context.Background(), strategy, []string{"first", "second"}, "")
	if err != nil {
		t.Fatalf("SelectOptimal: %v", err)
	}
	if sel.SelectedModel != "first" {
		t.Errorf("exact tie must keep the earlier candidate, got %q", sel.SelectedModel)
	}
}

func TestSelector_ExclusionsAreNotErrors(t *testing.T) {
	disabled := pricingFixture("disabled", 1, 1, 90)
	disabled.IsEnabled = false
	ps := &fakePricingStore{pricing: map[string]*types.ModelPricing{
		"disabled": disabled,
	}}
	s := newTestSelector(ps)
	strategy := &types.CostStrategy{StrategyID: "balanced", CostWeight: 1}

	sel, err := s.SelectOptimal(context.Background(), strategy, []string{"unknown", "disabled"}, "")
	if err != nil {
		t.Fatalf("an empty selection is a business outcome, not an error: %v", err)
	}
	if sel.SelectedModel != "" {
		t.Errorf("expected no selection, got %q", sel.SelectedModel)
	}
	wantReasons := map[string]string{
		"unknown":  "no pricing record",
		"disabled": "disabled",
	}
	for _, c := range sel.Candidates {
		if !c.Excluded {
			t.Errorf("candidate %s should be excluded", c.Model)
		}
		if c.ExcludeReason != wantReasons[c.Model] {
			t.Errorf("candidate %s: reason %q, want %q", c.Model, c.ExcludeReason, wantReasons[c.Model])
		}
	}
}

func TestSelector_MaxCostPerRequestFilter(t *testing.T) {
	// 1k input + 1k output tokens at $20+$40 per Mtok is $0.06 nominal.
	ps := &fakePricingStore{pricing: map[string]*types.ModelPricing{
		"expensive":  pricingFixture("expensive", 20, 40, 90),
		"affordable": pricingFixture("affordable", 1, 2, 70),
	}}
	s := newTestSelector(ps)
	ceiling := 0.01
	strategy := &types.CostStrategy{StrategyID: "capped", CostWeight: 0.2, PerformanceWeight: 0.8, MaxCostPerRequest: &ceiling}

	sel, err := s.SelectOptimal(context.Background(), strategy, []string{"expensive", "affordable"}, "")
	if err != nil {
		t.Fatalf("SelectOptimal: %v", err)
	}
	if sel.SelectedModel != "affordable" {
		t.Errorf("expected affordable after cost ceiling, got %q", sel.SelectedModel)
	}
	for _, c := range sel.Candidates {
		if c.Model == "expensive" && c.ExcludeReason != "exceeds max cost per request" {
			t.Errorf("expensive exclusion reason = %q", c.ExcludeReason)
		}
	}
}

func TestSelector_MinCapabilityScoreFilter(t *testing.T) {
	ps := &fakePricingStore{pricing: map[string]*types.ModelPricing{
		"weak":   pricingFixture("weak", 1, 1, 40),
		"strong": pricingFixture("strong", 10, 10, 85),
	}}
	s := newTestSelector(ps)
	floor := 60.0
	strategy := &types.CostStrategy{StrategyID: "quality", CostWeight: 1, MinCapabilityScore: &floor}

	sel, err := s.SelectOptimal(context.Background(), strategy, []string{"weak", "strong"}, "coding")
	if err != nil {
		t.Fatalf("SelectOptimal: %v", err)
	}
	if sel.SelectedModel != "strong" {
		t.Errorf("expected strong after capability floor, got %q", sel.SelectedModel)
	}
}

func TestSelector_ScenarioWeightsOverride(t *testing.T) {
	ps := &fakePricingStore{pricing: map[string]*types.ModelPricing{
		"cheap-weak":    pricingFixture("cheap-weak", 0.5, 1, 50),
		"pricey-strong": pricingFixture("pricey-strong", 40, 80, 95),
	}}
	s := newTestSelector(ps)
	strategy := &types.CostStrategy{
		StrategyID: "scenario-aware",
		CostWeight: 1, // base: pure cost
		ScenarioWeights: map[string]types.ScenarioWeights{
			"reasoning": {PerformanceWeight: 1},
		},
	}

	sel, err := s.SelectOptimal(context.Background(), strategy, []string{"cheap-weak", "pricey-strong"}, "")
	if err != nil {
		t.Fatalf("SelectOptimal: %v", err)
	}
	if sel.SelectedModel != "cheap-weak" {
		t.Errorf("base weights should pick the cheap model, got %q", sel.SelectedModel)
	}

	sel, err = s.SelectOptimal(context.Background(), strategy, []string{"cheap-weak", "pricey-strong"}, "reasoning")
	if err != nil {
		t.Fatalf("SelectOptimal: %v", err)
	}
	if sel.SelectedModel != "pricey-strong" {
		t.Errorf("reasoning override should pick the strong model, got %q", sel.SelectedModel)
	}
}

func TestSelector_CapabilityTagsShapeFit(t *testing.T) {
	vision := pricingFixture("vision-model", 5, 10, 80)
	vision.Features.Vision = true
	text := pricingFixture("text-model", 5, 10, 80)

	ps := &fakePricingStore{
		pricing: map[string]*types.ModelPricing{
			"vision-model": vision,
			"text-model":   text,
		},
		tags: []types.CapabilityTag{
			{TagID: "needs-vision", Priority: 10, RequiresVision: true, IsActive: true},
		},
	}
	s := newTestSelector(ps)
	strategy := &types.CostStrategy{StrategyID: "capability", CapabilityWeight: 1}

	sel, err := s.SelectOptimal(context.Background(), strategy, []string{"text-model", "vision-model"}, "")
	if err != nil {
		t.Fatalf("SelectOptimal: %v", err)
	}
	if sel.SelectedModel != "vision-model" {
		t.Errorf("expected vision-model to win the capability-weighted pick, got %q", sel.SelectedModel)
	}
}

func TestNormalizedCostScore(t *testing.T) {
	tests := []struct {
		name   string
		input  float64
		output float64
		want   float64
	}{
		{"free model scores 100", 0, 0, 100},
		{"avg below 100 subtracts", 10, 30, 80},
		{"avg at 100 bottoms out", 100, 100, 0},
		{"avg above 100 clamps", 200, 400, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &types.ModelPricing{InputPrice: tt.input, OutputPrice: tt.output}
			if got := normalizedCostScore(p); got != tt.want {
				t.Errorf("normalizedCostScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCapabilityFitScore_NoActiveTags(t *testing.T) {
	p := pricingFixture("m", 1, 1, 50)
	if got := capabilityFitScore(p, nil); got != 100 {
		t.Errorf("no tags should be a perfect fit, got %v", got)
	}
	inactive := []types.CapabilityTag{{TagID: "off", RequiresVision: true, IsActive: false}}
	if got := capabilityFitScore(p, inactive); got != 100 {
		t.Errorf("inactive tags must not count, got %v", got)
	}
}
