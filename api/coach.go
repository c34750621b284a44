package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vidasana/coach/internal/log"
	"github.com/vidasana/coach/internal/rag"
)

// CoachHandler serves coaching plan generation.
type CoachHandler struct {
	coach  Coach
	logger log.Logger
}

// coachRequest is the body of POST /api/coach.
type coachRequest struct {
	UserProfile rag.UserProfile `json:"user_profile"`
	RiskScore   float64         `json:"risk_score"`
	TopDrivers  []string        `json:"top_drivers"`
}

// validate enforces the profile ranges the coach prompt assumes.
func (req *coachRequest) validate() error {
	p := req.UserProfile
	switch {
	case p.Age < 18 || p.Age > 85:
		return fmt.Errorf("age must be between 18 and 85, got %d", p.Age)
	case p.Sex != "M" && p.Sex != "F":
		return fmt.Errorf("sex must be M or F, got %q", p.Sex)
	case p.HeightCM < 120 || p.HeightCM > 220:
		return fmt.Errorf("height_cm must be between 120 and 220, got %v", p.HeightCM)
	case p.WeightKG < 30 || p.WeightKG > 220:
		return fmt.Errorf("weight_kg must be between 30 and 220, got %v", p.WeightKG)
	case p.WaistCM < 40 || p.WaistCM > 170:
		return fmt.Errorf("waist_cm must be between 40 and 170, got %v", p.WaistCM)
	case req.RiskScore < 0 || req.RiskScore > 1:
		return fmt.Errorf("risk_score must be between 0 and 1, got %v", req.RiskScore)
	case len(req.TopDrivers) == 0:
		return fmt.Errorf("top_drivers must not be empty")
	}
	return nil
}

// plan handles POST /api/coach.
func (h *CoachHandler) plan(w http.ResponseWriter, r *http.Request) {
	var req coachRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_profile", err.Error())
		return
	}

	plan, err := h.coach.GeneratePlan(r.Context(), req.UserProfile, req.RiskScore, req.TopDrivers)
	if err != nil {
		status, code := answerErrorStatus(err)
		h.logger.Error("generating coach plan", "error", err)
		writeError(w, status, code, "could not generate the coaching plan")
		return
	}

	writeJSON(w, http.StatusOK, plan)
}
