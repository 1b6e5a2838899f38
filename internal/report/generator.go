// Package report builds the fit report attached to a candidate at the end of
// a conversation and stores it as a JSON artifact.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"hiring_assistant_backend/internal/adapters/storage"
	"hiring_assistant_backend/internal/hiring/domain"
	"hiring_assistant_backend/internal/hiring/ports"
	"hiring_assistant_backend/internal/hiring/scoring"
	"hiring_assistant_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	contentTypeJSON = "application/json"
	reportFolder    = "reports"
)

// Generator is a ports.ReportGenerator. Without storage the report is scored
// and summarized but no artifact is written.
type Generator struct {
	scorer  *scoring.Service
	storage storage.StorageService
	bucket  string
	log     *logger.Logger
	now     func() time.Time
}

// New creates a generator. store may be nil.
func New(scorer *scoring.Service, store storage.StorageService, bucket string, log *logger.Logger) *Generator {
	return &Generator{scorer: scorer, storage: store, bucket: bucket, log: log, now: time.Now}
}

// Artifact is the stored report document.
type Artifact struct {
	SessionID      string         `json:"sessionId"`
	GeneratedAt    time.Time      `json:"generatedAt"`
	Stage          string         `json:"stage"`
	FinalStatus    string         `json:"finalStatus,omitempty"`
	CandidateID    string         `json:"candidateId,omitempty"`
	JobID          string         `json:"jobId,omitempty"`
	Applicant      applicant      `json:"applicant"`
	Score          scoring.Result `json:"score"`
	ProfileSummary string         `json:"profileSummary"`
}

type applicant struct {
	FullName         string `json:"fullName,omitempty"`
	Email            string `json:"email,omitempty"`
	PhoneNumber      string `json:"phoneNumber,omitempty"`
	EmailVerified    bool   `json:"emailVerified"`
	PhoneVerified    bool   `json:"phoneVerified"`
	YearsExperience  *int   `json:"yearsExperience,omitempty"`
	PreviousRole     string `json:"previousRole,omitempty"`
	PreviousEmployer string `json:"previousEmployer,omitempty"`
}

// Generate scores snapshot, writes the artifact and returns the report.
func (g *Generator) Generate(ctx context.Context, sessionID string, snapshot *domain.Session) (ports.Report, error) {
	result := g.scorer.ScoreSession(snapshot)
	artifact := g.buildArtifact(sessionID, snapshot, result)

	report := ports.Report{
		FitScore:       result.Total,
		ProfileSummary: artifact.ProfileSummary,
	}
	if g.storage == nil {
		return report, nil
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return ports.Report{}, fmt.Errorf("marshal report: %w", err)
	}
	key := path.Join(reportFolder, sessionID, uuid.NewString()+".json")
	if err := g.storage.PutObject(ctx, g.bucket, key, contentTypeJSON, bytes.NewReader(data), int64(len(data))); err != nil {
		return ports.Report{}, fmt.Errorf("store report: %w", err)
	}
	report.Path = g.bucket + "/" + key
	g.log.Info("report stored", "sessionId", sessionID, "path", report.Path, "fitScore", result.Total)
	return report, nil
}

func (g *Generator) buildArtifact(sessionID string, s *domain.Session, result scoring.Result) Artifact {
	a := Artifact{
		SessionID:   sessionID,
		GeneratedAt: g.now().UTC(),
		Score:       result,
	}
	if s == nil {
		a.ProfileSummary = Summarize(nil, result)
		return a
	}
	a.Stage = string(s.CurrentStage)
	a.FinalStatus = s.FinalStatus
	a.CandidateID = s.CandidateID()
	if s.Engagement != nil {
		a.JobID = s.Engagement.JobID
	}
	if app := s.Application; app != nil {
		a.Applicant = applicant{
			FullName:         deref(app.FullName),
			Email:            deref(app.Email),
			PhoneNumber:      deref(app.PhoneNumber),
			YearsExperience:  app.YearsExperience,
			PreviousRole:     deref(app.PreviousRole),
			PreviousEmployer: deref(app.PreviousEmployer),
		}
	}
	if v := s.Verification; v != nil {
		a.Applicant.EmailVerified = v.Email.Verified
		a.Applicant.PhoneVerified = v.Phone.Verified
	}
	a.ProfileSummary = Summarize(s, result)
	return a
}

// Summarize renders a short recruiter-facing profile of the applicant.
func Summarize(s *domain.Session, result scoring.Result) string {
	var parts []string

	name := "The applicant"
	if s != nil && s.Application != nil && deref(s.Application.FullName) != "" {
		name = deref(s.Application.FullName)
	}

	if s != nil && s.Application != nil {
		app := s.Application
		var background string
		switch {
		case app.YearsExperience != nil && deref(app.PreviousRole) != "":
			background = fmt.Sprintf("%s has %d years of experience, most recently as %s", name, *app.YearsExperience, deref(app.PreviousRole))
		case app.YearsExperience != nil:
			background = fmt.Sprintf("%s has %d years of experience", name, *app.YearsExperience)
		case deref(app.PreviousRole) != "":
			background = fmt.Sprintf("%s previously worked as %s", name, deref(app.PreviousRole))
		}
		if background != "" {
			if employer := deref(app.PreviousEmployer); employer != "" {
				background += " at " + employer
			}
			parts = append(parts, background+".")
		}
		if skills := deref(app.Skills); skills != "" {
			parts = append(parts, "Skills: "+skills+".")
		}
	}
	if len(parts) == 0 {
		parts = append(parts, name+" shared no employment background.")
	}

	if s != nil && s.Qualification != nil {
		switch s.Qualification.Status {
		case domain.QualificationQualified:
			parts = append(parts, "Meets the eligibility requirements.")
		case domain.QualificationDisqualified:
			parts = append(parts, "Does not meet the eligibility requirements.")
		}
	}

	parts = append(parts, fmt.Sprintf("Fit score %.1f/100 (%s): qualification %.0f, experience %.0f, verification %.0f.",
		result.Total, result.Rating, result.QualificationScore, result.ExperienceScore, result.VerificationScore))
	return strings.Join(parts, " ")
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

var _ ports.ReportGenerator = (*Generator)(nil)
