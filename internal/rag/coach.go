package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vidasana/coach/internal/guardrail"
)

// UserProfile is the coach input. It is consumed to build the coaching
// prompt and never persisted. Optional lifestyle fields are pointers so
// "not provided" is distinguishable from zero.
type UserProfile struct {
	Age                 int      `json:"age"`
	Sex                 string   `json:"sex"`
	HeightCM            float64  `json:"height_cm"`
	WeightKG            float64  `json:"weight_kg"`
	WaistCM             float64  `json:"waist_cm"`
	SleepHours          *float64 `json:"sleep_hours,omitempty"`
	SmokesCigDay        *int     `json:"smokes_cig_day,omitempty"`
	DaysMVPAWeek        *int     `json:"days_mvpa_week,omitempty"`
	FruitVegPortionsDay *float64 `json:"fruit_veg_portions_day,omitempty"`
}

// Plan is a generated two-week coaching plan with its cited sources.
type Plan struct {
	Plan    string   `json:"plan"`
	Sources []string `json:"sources"`
}

// GeneratePlan builds a personalized two-week coaching plan.
//
// The retrieval query is derived from the top-3 risk drivers. The model
// is asked for a JSON object; when its output cannot be parsed the
// caller still gets a deterministic templated plan rather than an error.
// Returned sources are the deduplicated union of the model's citations
// and the retrieved file names.
func (s *Service) GeneratePlan(ctx context.Context, profile UserProfile, riskScore float64, topDrivers []string) (*Plan, error) {
	if riskScore < 0 || riskScore > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRiskScore, riskScore)
	}
	switch {
	case riskScore >= s.criticalRisk:
		s.logger.Warn("critical-risk profile, plan carries an urgent consultation notice",
			"risk_score", riskScore, "threshold", s.criticalRisk)
	case guardrail.RequiresReferral(riskScore, s.highRisk, ""):
		s.logger.Info("high-risk profile, plan will emphasize professional referral",
			"risk_score", riskScore, "threshold", s.highRisk)
	}

	queryDrivers := topDrivers
	if len(queryDrivers) > 3 {
		queryDrivers = queryDrivers[:3]
	}
	query := fmt.Sprintf("recomendaciones para %s factores de riesgo salud preventiva",
		strings.Join(queryDrivers, ", "))

	retrieveCtx, cancel := context.WithTimeout(ctx, retrieveTimeout)
	results, err := s.index.Query(retrieveCtx, query, s.topK)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("retrieving coach context: %w", err)
	}
	retrieved := sourceNames(results)

	userJSON, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding user profile: %w", err)
	}

	prompt := guardrail.CoachPrompt(string(userJSON), riskScore, topDrivers, formatContext(results))

	genCtx, genCancel := context.WithTimeout(ctx, generateTimeout)
	defer genCancel()
	raw, err := s.generate(genCtx, "", prompt, nil)
	if err != nil {
		return nil, err
	}

	plan, ok := parsePlan(raw)
	if !ok {
		s.logger.Warn("coach plan output not parseable, using fallback plan",
			"output_length", len(raw))
		plan = fallbackPlan(riskScore, topDrivers, retrieved)
	} else {
		plan.Sources = mergeSources(retrieved, plan.Sources)
	}

	if riskScore >= s.criticalRisk {
		plan.Plan += "\n\n" + guardrail.CriticalRiskNotice
	}
	return plan, nil
}

// parsePlan decodes the model's JSON plan, tolerating a markdown code
// fence around the object.
func parsePlan(raw string) (*Plan, bool) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var p Plan
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, false
	}
	if strings.TrimSpace(p.Plan) == "" {
		return nil, false
	}
	return &p, true
}

// fallbackPlan builds the deterministic plan used when the model output
// is malformed. It always names the risk score as a percentage, every
// driver, and the medical disclaimer.
func fallbackPlan(riskScore float64, topDrivers, sources []string) *Plan {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan personalizado basado en tu perfil (riesgo: %.1f%%).\n\n", riskScore*100)
	fmt.Fprintf(&b, "Factores principales a abordar: %s.\n\n", strings.Join(topDrivers, ", "))
	b.WriteString(guardrail.MedicalDisclaimer)
	if len(sources) > 0 {
		fmt.Fprintf(&b, "\n\nFuentes consultadas: %s", strings.Join(sources, ", "))
	}
	return &Plan{Plan: b.String(), Sources: sources}
}

// mergeSources returns the deduplicated union of retrieved and cited
// source names, preserving first-seen order.
func mergeSources(retrieved, cited []string) []string {
	seen := make(map[string]bool, len(retrieved)+len(cited))
	merged := make([]string, 0, len(retrieved)+len(cited))
	for _, name := range append(append([]string{}, retrieved...), cited...) {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		merged = append(merged, name)
	}
	return merged
}
