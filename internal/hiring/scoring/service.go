package scoring

import (
	"fmt"
	"math"

	"hiring_assistant_backend/internal/hiring/domain"
	"hiring_assistant_backend/platform/logger"
)

const (
	// scoreVersion tracks the scoring model. Bump it when point allocations change.
	scoreVersion = "2026-v1"

	weightSumTolerance = 1e-9
)

// Qualification point allocation, 100 in total.
const (
	pointsAgeConfirmed      = 20.0
	pointsWorkAuthorization = 25.0
	pointsShiftPreference   = 15.0
	pointsAvailability      = 20.0
	pointsTransportation    = 10.0
	pointsHoursPreference   = 10.0
)

// Experience point allocation, 100 in total.
const (
	pointsPerExperienceYear = 5.0
	maxExperienceYears      = 8
	pointsPreviousRole      = 20.0
	pointsPreviousEmployer  = 15.0
	pointsSkills            = 15.0
	pointsEducation         = 10.0
)

// Verification point allocation, 100 in total.
const (
	pointsEmailProvided = 10.0
	pointsPhoneProvided = 10.0
	pointsEmailVerified = 40.0
	pointsPhoneVerified = 40.0
)

// Rating buckets.
const (
	RatingExcellent    = "Excellent"
	RatingGood         = "Good"
	RatingFair         = "Fair"
	RatingBelowAverage = "Below Average"
	RatingPoor         = "Poor"
)

// Component names used in breakdown factors.
const (
	ComponentQualification = "qualification"
	ComponentExperience    = "experience"
	ComponentVerification  = "verification"
)

// Factor is one signal that contributed points to a component score.
type Factor struct {
	Component string  `json:"component"`
	Name      string  `json:"name"`
	Points    float64 `json:"points"`
}

// Result is the fit score of a session.
type Result struct {
	QualificationScore float64  `json:"qualificationScore"`
	ExperienceScore    float64  `json:"experienceScore"`
	VerificationScore  float64  `json:"verificationScore"`
	Total              float64  `json:"total"`
	Rating             string   `json:"rating"`
	Weights            Weights  `json:"weights"`
	Breakdown          []Factor `json:"breakdown"`
	Version            string   `json:"version"`
}

// Service computes fit scores with a fixed, normalized set of weights.
type Service struct {
	weights Weights
}

// New normalizes weights and logs a warning when they did not sum to 1.
// Negative or all-zero weights are a programming error.
func New(weights Weights, log *logger.Logger) (*Service, error) {
	normalized, changed, err := weights.Normalize()
	if err != nil {
		return nil, err
	}
	if changed && log != nil {
		log.Warn("scoring weights did not sum to 1.0; re-normalized",
			"qualification", weights.Qualification,
			"experience", weights.Experience,
			"verification", weights.Verification,
			"sum", weights.sum(),
		)
	}
	return &Service{weights: normalized}, nil
}

// Weights returns the normalized weights in use.
func (s *Service) Weights() Weights {
	return s.weights
}

// Score computes the fit score from whatever records are present. Missing
// records and fields contribute zero. The inputs are not modified.
func (s *Service) Score(q *domain.QualificationState, a *domain.ApplicationState, v *domain.VerificationState) Result {
	factors := make([]Factor, 0, 16)

	qual := scoreQualification(q, &factors)
	exp := scoreExperience(a, &factors)
	ver := scoreVerification(a, v, &factors)

	total := qual*s.weights.Qualification + exp*s.weights.Experience + ver*s.weights.Verification
	total = clampScore(round2(total))

	return Result{
		QualificationScore: qual,
		ExperienceScore:    exp,
		VerificationScore:  ver,
		Total:              total,
		Rating:             RatingFor(total),
		Weights:            s.weights,
		Breakdown:          factors,
		Version:            scoreVersion,
	}
}

// ScoreSession scores the records of a session.
func (s *Service) ScoreSession(sess *domain.Session) Result {
	if sess == nil {
		return s.Score(nil, nil, nil)
	}
	return s.Score(sess.Qualification, sess.Application, sess.Verification)
}

// RatingFor maps a 0-100 total to its rating bucket.
func RatingFor(total float64) string {
	switch {
	case total >= 85:
		return RatingExcellent
	case total >= 70:
		return RatingGood
	case total >= 55:
		return RatingFair
	case total >= 40:
		return RatingBelowAverage
	default:
		return RatingPoor
	}
}

func scoreQualification(q *domain.QualificationState, factors *[]Factor) float64 {
	if q == nil {
		return 0
	}
	score := 0.0
	if q.AgeConfirmed != nil && *q.AgeConfirmed {
		score += addFactor(factors, ComponentQualification, "age_confirmed", pointsAgeConfirmed)
	}
	if q.WorkAuthorization != nil && *q.WorkAuthorization {
		score += addFactor(factors, ComponentQualification, "work_authorization", pointsWorkAuthorization)
	}
	if present(q.ShiftPreference) {
		score += addFactor(factors, ComponentQualification, "shift_preference", pointsShiftPreference)
	}
	if present(q.AvailabilityStart) {
		score += addFactor(factors, ComponentQualification, "availability_start", pointsAvailability)
	}
	if q.Transportation != nil && *q.Transportation {
		score += addFactor(factors, ComponentQualification, "transportation", pointsTransportation)
	}
	if present(q.HoursPreference) {
		score += addFactor(factors, ComponentQualification, "hours_preference", pointsHoursPreference)
	}
	return clampScore(score)
}

func scoreExperience(a *domain.ApplicationState, factors *[]Factor) float64 {
	if a == nil {
		return 0
	}
	score := 0.0
	if a.YearsExperience != nil && *a.YearsExperience > 0 {
		years := *a.YearsExperience
		if years > maxExperienceYears {
			years = maxExperienceYears
		}
		score += addFactor(factors, ComponentExperience, "years_experience", float64(years)*pointsPerExperienceYear)
	}
	if present(a.PreviousRole) {
		score += addFactor(factors, ComponentExperience, "previous_role", pointsPreviousRole)
	}
	if present(a.PreviousEmployer) {
		score += addFactor(factors, ComponentExperience, "previous_employer", pointsPreviousEmployer)
	}
	if present(a.Skills) {
		score += addFactor(factors, ComponentExperience, "skills", pointsSkills)
	}
	if present(a.Education) {
		score += addFactor(factors, ComponentExperience, "education", pointsEducation)
	}
	return clampScore(score)
}

func scoreVerification(a *domain.ApplicationState, v *domain.VerificationState, factors *[]Factor) float64 {
	score := 0.0
	if a != nil && present(a.Email) {
		score += addFactor(factors, ComponentVerification, "email_provided", pointsEmailProvided)
	}
	if a != nil && present(a.PhoneNumber) {
		score += addFactor(factors, ComponentVerification, "phone_provided", pointsPhoneProvided)
	}
	if v != nil && v.Email.Verified {
		score += addFactor(factors, ComponentVerification, "email_verified", pointsEmailVerified)
	}
	if v != nil && v.Phone.Verified {
		score += addFactor(factors, ComponentVerification, "phone_verified", pointsPhoneVerified)
	}
	return clampScore(score)
}

func addFactor(factors *[]Factor, component, name string, points float64) float64 {
	rounded := round2(points)
	*factors = append(*factors, Factor{Component: component, Name: name, Points: rounded})
	return rounded
}

func present(v *string) bool {
	return v != nil && *v != ""
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// String renders the result for logs and report summaries.
func (r Result) String() string {
	return fmt.Sprintf("%.2f (%s; qualification %.0f, experience %.0f, verification %.0f)",
		r.Total, r.Rating, r.QualificationScore, r.ExperienceScore, r.VerificationScore)
}
