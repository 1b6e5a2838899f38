package transport

import "time"

// StartSessionRequest opens a conversation for a job posting.
type StartSessionRequest struct {
	JobID            string `json:"jobId" validate:"omitempty,max=100"`
	CompanyID        string `json:"companyId" validate:"omitempty,max=100"`
	Language         string `json:"language" validate:"omitempty,bcp47_language_tag"`
	BackendSessionID string `json:"backendSessionId" validate:"omitempty,max=100"`
}

// StartSessionResponse carries the new session id and the token that
// authorizes later calls for it.
type StartSessionResponse struct {
	SessionID string    `json:"sessionId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Stage     string    `json:"stage"`
	Replies   []string  `json:"replies"`
}

// ChatRequest is one user message.
type ChatRequest struct {
	Message string `json:"message" validate:"required,min=1,max=4000"`
}

// ChatResponse carries the assistant's replies for one turn.
type ChatResponse struct {
	Replies   []string `json:"replies"`
	Stage     string   `json:"stage"`
	Concluded bool     `json:"concluded"`
}

// EndSessionRequest concludes a session explicitly.
type EndSessionRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=200"`
}

// EndSessionResponse reports the final status.
type EndSessionResponse struct {
	FinalStatus      string `json:"finalStatus"`
	CandidateID      string `json:"candidateId,omitempty"`
	AlreadyConcluded bool   `json:"alreadyConcluded"`
}

// SessionResponse is the read model of a session.
type SessionResponse struct {
	SessionID          string    `json:"sessionId"`
	Stage              string    `json:"stage"`
	QualificationState string    `json:"qualificationStatus,omitempty"`
	CandidateID        string    `json:"candidateId,omitempty"`
	EmailVerification  string    `json:"emailVerification,omitempty"`
	PhoneVerification  string    `json:"phoneVerification,omitempty"`
	Concluded          bool      `json:"concluded"`
	FinalStatus        string    `json:"finalStatus,omitempty"`
	FitScore           *float64  `json:"fitScore,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}
