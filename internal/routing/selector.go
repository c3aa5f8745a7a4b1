package routing

import (
	"context"
	"log/slog"

	"github.com/af-corp/compass-router/internal/store"
	"github.com/af-corp/compass-router/internal/types"
)

// PricingStore is the slice of the store the selector needs.
type PricingStore interface {
	GetPricing(ctx context.Context, model string) (*types.ModelPricing, error)
	ListCapabilityTags(ctx context.Context) ([]types.CapabilityTag, error)
}

// Selection is the outcome of a cost-strategy model selection. SelectedModel
// is empty when every candidate was filtered out — a normal business outcome,
// not an error.
type Selection struct {
	SelectedModel string              `json:"selected_model"`
	Scenario      string              `json:"scenario,omitempty"`
	Strategy      *types.CostStrategy `json:"strategy"`
	Candidates    []CandidateScore    `json:"candidates,omitempty"`
}

// CandidateScore is the per-model scoring breakdown, surfaced for admin
// tooling.
type CandidateScore struct {
	Model         string  `json:"model"`
	CostScore     float64 `json:"cost_score"`
	ScenarioScore float64 `json:"scenario_score"`
	CapabilityFit float64 `json:"capability_fit"`
	Blended       float64 `json:"blended"`
	Excluded      bool    `json:"excluded,omitempty"`
	ExcludeReason string  `json:"exclude_reason,omitempty"`
}

// Selector picks the best model for a scenario under a cost strategy.
type Selector struct {
	store  PricingStore
	logger *slog.Logger
}

func NewSelector(store PricingStore, logger *slog.Logger) *Selector {
	return &Selector{store: store, logger: logger}
}

// nominalRequestTokens is the per-request volume assumed when checking a
// strategy's maxCostPerRequest ceiling: 1k input plus 1k output tokens.
const nominalRequestTokens = 1000.0

// SelectOptimal scores the candidates and returns the winner. Candidates
// without a pricing record, disabled models, and models violating the
// strategy's hard constraints are excluded before scoring. Exact ties go to
// the model appearing earlier in availableModels.
func (s *Selector) SelectOptimal(ctx context.Context, strategy *types.CostStrategy, availableModels []string, scenario string) (*Selection, error) {
	tags, err := s.store.ListCapabilityTags(ctx)
	if err != nil {
		return nil, err
	}

	weights := strategy.WeightsFor(scenario)
	sel := &Selection{Scenario: scenario, Strategy: strategy}

	best := -1.0
	for _, model := range availableModels {
		pricing, err := s.store.GetPricing(ctx, model)
		if err != nil {
			if store.IsNotFound(err) {
				sel.Candidates = append(sel.Candidates, CandidateScore{
					Model: model, Excluded: true, ExcludeReason: "no pricing record",
				})
				continue
			}
			return nil, err
		}
		if !pricing.IsEnabled {
			sel.Candidates = append(sel.Candidates, CandidateScore{
				Model: model, Excluded: true, ExcludeReason: "disabled",
			})
			continue
		}

		scenarioScore := pricing.ScenarioScore(scenario)
		capabilityFit := capabilityFitScore(pricing, tags)

		if reason := hardFilter(strategy, pricing, scenarioScore); reason != "" {
			sel.Candidates = append(sel.Candidates, CandidateScore{
				Model: model, Excluded: true, ExcludeReason: reason,
			})
			continue
		}

		costScore := normalizedCostScore(pricing)
		blended := weights.CostWeight*costScore +
			weights.PerformanceWeight*scenarioScore +
			weights.CapabilityWeight*capabilityFit

		sel.Candidates = append(sel.Candidates, CandidateScore{
			Model:         model,
			CostScore:     costScore,
			ScenarioScore: scenarioScore,
			CapabilityFit: capabilityFit,
			Blended:       blended,
		})

		// Strictly greater keeps the tie on the earlier candidate.
		if blended > best {
			best = blended
			sel.SelectedModel = model
		}
	}

	if sel.SelectedModel == "" {
		s.logger.Info("no eligible model for selection",
			"strategy_id", strategy.StrategyID, "scenario", scenario,
			"candidates", len(availableModels))
	}
	return sel, nil
}

// hardFilter returns a non-empty exclusion reason when the strategy's
// constraints rule the model out before scoring.
func hardFilter(strategy *types.CostStrategy, p *types.ModelPricing, scenarioScore float64) string {
	if strategy.MaxCostPerRequest != nil {
		estimated := (p.InputPrice + p.OutputPrice) * nominalRequestTokens / 1_000_000
		if estimated > *strategy.MaxCostPerRequest {
			return "exceeds max cost per request"
		}
	}
	if strategy.MinCapabilityScore != nil && scenarioScore < *strategy.MinCapabilityScore {
		return "below min capability score"
	}
	return ""
}

// normalizedCostScore maps prices to [0,100], cheaper scoring higher. The
// average of input and output USD-per-million prices is subtracted from 100,
// so anything at or above $100/Mtok bottoms out at zero.
func normalizedCostScore(p *types.ModelPricing) float64 {
	avg := (p.InputPrice + p.OutputPrice) / 2
	score := 100 - avg
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// capabilityFitScore rates how well a model satisfies the active capability
// tags, weighted by tag priority. No active tags means a perfect fit.
func capabilityFitScore(p *types.ModelPricing, tags []types.CapabilityTag) float64 {
	totalWeight := 0
	satisfiedWeight := 0
	for _, tag := range tags {
		if !tag.IsActive {
			continue
		}
		weight := tag.Priority
		if weight <= 0 {
			weight = 1
		}
		totalWeight += weight
		if tagSatisfied(p, tag) {
			satisfiedWeight += weight
		}
	}
	if totalWeight == 0 {
		return 100
	}
	return 100 * float64(satisfiedWeight) / float64(totalWeight)
}

func tagSatisfied(p *types.ModelPricing, tag types.CapabilityTag) bool {
	if len(tag.RequiredModels) > 0 {
		found := false
		for _, m := range tag.RequiredModels {
			if m == p.Model {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if tag.RequiresVision && !p.Features.Vision {
		return false
	}
	if tag.RequiresFunctionCalling && !p.Features.FunctionCalling {
		return false
	}
	if tag.RequiresExtendedThinking && !p.Features.ExtendedThinking {
		return false
	}
	if tag.RequiresStreaming && !p.Features.Streaming {
		return false
	}
	if tag.MaxCostPerMToken != nil {
		avg := (p.InputPrice + p.OutputPrice) / 2
		if avg > *tag.MaxCostPerMToken {
			return false
		}
	}
	return true
}
