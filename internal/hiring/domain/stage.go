package domain

// Stage is one phase of the application conversation.
type Stage string

const (
	StageEngagement    Stage = "Engagement"
	StageQualification Stage = "Qualification"
	StageApplication   Stage = "Application"
	StageVerification  Stage = "Verification"
	StageCompleted     Stage = "Completed"
)

var stageRank = map[Stage]int{
	StageEngagement:    0,
	StageQualification: 1,
	StageApplication:   2,
	StageVerification:  3,
	StageCompleted:     4,
}

var stageOrder = []Stage{
	StageEngagement,
	StageQualification,
	StageApplication,
	StageVerification,
	StageCompleted,
}

// IsKnownStage reports whether s is one of the defined stages.
func IsKnownStage(s Stage) bool {
	_, ok := stageRank[s]
	return ok
}

// Rank orders stages from Engagement (0) to Completed (4). Unknown stages rank -1.
func (s Stage) Rank() int {
	if r, ok := stageRank[s]; ok {
		return r
	}
	return -1
}

// Next returns the stage after s. Completed has no successor.
func (s Stage) Next() (Stage, bool) {
	r := s.Rank()
	if r < 0 || r+1 >= len(stageOrder) {
		return "", false
	}
	return stageOrder[r+1], true
}

// IsTerminal reports whether no transition leaves s.
func (s Stage) IsTerminal() bool {
	return s == StageCompleted
}

// QualificationStatus is the eligibility outcome of the qualification stage.
type QualificationStatus string

const (
	QualificationPending      QualificationStatus = "pending"
	QualificationQualified    QualificationStatus = "qualified"
	QualificationDisqualified QualificationStatus = "disqualified"
)

// Final statuses written to the backend session record at conclusion.
const (
	FinalStatusCompleted        = "Completed"
	FinalStatusQualifiedPending = "Qualified - Pending"
	FinalStatusPaused           = "In Progress - Paused"
	FinalStatusEarlyExit        = "Ended - Early Exit"
)

// ConclusionState tracks the one-shot conclusion of a session.
type ConclusionState int

const (
	ConclusionNotStarted ConclusionState = iota
	ConclusionConcluding
	ConclusionConcluded
)

func (c ConclusionState) String() string {
	switch c {
	case ConclusionConcluding:
		return "concluding"
	case ConclusionConcluded:
		return "concluded"
	default:
		return "not_started"
	}
}
