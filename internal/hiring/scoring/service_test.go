package scoring

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"hiring_assistant_backend/internal/hiring/domain"
	"hiring_assistant_backend/platform/logger"
)

func fullQualification() *domain.QualificationState {
	return &domain.QualificationState{
		AgeConfirmed:      domain.Bool(true),
		WorkAuthorization: domain.Bool(true),
		ShiftPreference:   domain.Str("days"),
		AvailabilityStart: domain.Str("monday"),
		Transportation:    domain.Bool(true),
		HoursPreference:   domain.Str("full-time"),
		Status:            domain.QualificationQualified,
	}
}

func TestQualificationPointsSumToHundred(t *testing.T) {
	svc, err := New(DefaultWeights, logger.Discard())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	res := svc.Score(fullQualification(), nil, nil)
	if res.QualificationScore != 100 {
		t.Fatalf("qualification score = %v, want 100", res.QualificationScore)
	}
	if res.ExperienceScore != 0 || res.VerificationScore != 0 {
		t.Fatalf("missing records scored non-zero: %+v", res)
	}
	if res.Total != 40 {
		t.Fatalf("total = %v, want 40", res.Total)
	}
}

func TestMissingFieldsContributeZero(t *testing.T) {
	svc, _ := New(DefaultWeights, nil)
	q := &domain.QualificationState{AgeConfirmed: domain.Bool(true)}
	a := &domain.ApplicationState{Email: domain.Str("jane@x.com")}
	res := svc.Score(q, a, nil)
	if res.QualificationScore != 20 {
		t.Fatalf("qualification = %v, want 20", res.QualificationScore)
	}
	if res.VerificationScore != 10 {
		t.Fatalf("verification = %v, want 10", res.VerificationScore)
	}
	if len(res.Breakdown) != 2 {
		t.Fatalf("breakdown = %+v", res.Breakdown)
	}
}

func TestWeightsAreRenormalized(t *testing.T) {
	tests := []struct {
		name    string
		in      Weights
		changed bool
	}{
		{name: "already normalized", in: DefaultWeights, changed: false},
		{name: "scaled up", in: Weights{Qualification: 4, Experience: 3.5, Verification: 2.5}, changed: true},
		{name: "uneven", in: Weights{Qualification: 1, Experience: 1, Verification: 2}, changed: true},
		{name: "single component", in: Weights{Experience: 0.2}, changed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			svc, err := New(tt.in, logger.NewWithWriter("production", &buf))
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			w := svc.Weights()
			if sum := w.sum(); math.Abs(sum-1) > 1e-9 {
				t.Fatalf("weights sum = %v, want 1", sum)
			}
			warned := strings.Contains(buf.String(), "re-normalized")
			if warned != tt.changed {
				t.Fatalf("warning logged = %v, want %v", warned, tt.changed)
			}
		})
	}
}

func TestInvalidWeightsRejected(t *testing.T) {
	for _, w := range []Weights{
		{Qualification: -0.1, Experience: 0.6, Verification: 0.5},
		{},
	} {
		if _, err := New(w, nil); err == nil {
			t.Fatalf("New(%+v) accepted invalid weights", w)
		}
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	svc, _ := New(Weights{Qualification: 2, Experience: 1, Verification: 1}, nil)
	q := fullQualification()
	a := &domain.ApplicationState{
		FullName:         domain.Str("Jane Doe"),
		Email:            domain.Str("jane@x.com"),
		PhoneNumber:      domain.Str("+16502530000"),
		YearsExperience:  domain.Int(3),
		PreviousRole:     domain.Str("picker"),
		PreviousEmployer: domain.Str("Acme"),
	}
	v := &domain.VerificationState{Email: domain.ChannelVerification{Verified: true}}

	first := svc.Score(q, a, v)
	second := svc.Score(q, a, v)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("scores differ:\n%+v\n%+v", first, second)
	}
	if math.Float64bits(first.Total) != math.Float64bits(second.Total) {
		t.Fatalf("totals not bit-identical")
	}
	if first.ExperienceScore != 50 {
		t.Fatalf("experience = %v, want 50", first.ExperienceScore)
	}
	if first.VerificationScore != 60 {
		t.Fatalf("verification = %v, want 60", first.VerificationScore)
	}
}

func TestRatingBuckets(t *testing.T) {
	tests := []struct {
		total float64
		want  string
	}{
		{100, RatingExcellent},
		{85, RatingExcellent},
		{84.99, RatingGood},
		{70, RatingGood},
		{55, RatingFair},
		{40, RatingBelowAverage},
		{39.99, RatingPoor},
		{0, RatingPoor},
	}
	for _, tt := range tests {
		if got := RatingFor(tt.total); got != tt.want {
			t.Errorf("RatingFor(%v) = %q, want %q", tt.total, got, tt.want)
		}
	}
}

func TestLoadWeights(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weights.yaml")
	content := "weights:\n  qualification: 5\n  experience: 3\n  verification: 2\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	w, err := LoadWeights(path)
	if err != nil {
		t.Fatalf("LoadWeights() error = %v", err)
	}
	if w != (Weights{Qualification: 5, Experience: 3, Verification: 2}) {
		t.Fatalf("weights = %+v", w)
	}

	if w, err := LoadWeights(""); err != nil || w != DefaultWeights {
		t.Fatalf("empty path = %+v, %v", w, err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	_ = os.WriteFile(bad, []byte("other: 1\n"), 0o600)
	if _, err := LoadWeights(bad); err == nil {
		t.Fatalf("missing weights section accepted")
	}
}
