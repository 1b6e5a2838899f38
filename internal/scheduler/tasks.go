package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const TaskSessionFollowUp = "hiring.session.follow_up"

// SessionFollowUpPayload identifies a concluded session a recruiter should
// look at.
type SessionFollowUpPayload struct {
	SessionID   string  `json:"sessionId"`
	CandidateID string  `json:"candidateId"`
	FinalStatus string  `json:"finalStatus"`
	FitScore    float64 `json:"fitScore"`
}

func NewSessionFollowUpTask(payload SessionFollowUpPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionFollowUp, data), nil
}

func ParseSessionFollowUpPayload(task *asynq.Task) (SessionFollowUpPayload, error) {
	var payload SessionFollowUpPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SessionFollowUpPayload{}, err
	}
	if payload.SessionID == "" || payload.CandidateID == "" {
		return SessionFollowUpPayload{}, fmt.Errorf("follow-up payload requires sessionId and candidateId")
	}
	return payload, nil
}
