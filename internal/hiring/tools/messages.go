package tools

import (
	"errors"
	"strings"

	"hiring_assistant_backend/internal/hiring/domain"
	"hiring_assistant_backend/platform/apperr"
)

const msgRetryLater = "We couldn't reach our systems just now. Please try again in a moment."

var fieldLabels = map[string]string{
	"full_name":        "full name",
	"email":            "email address",
	"phone_number":     "phone number",
	"age":              "age",
	"years_experience": "years of experience",
	"candidate_id":     "contact details",
}

func label(field string) string {
	if l, ok := fieldLabels[field]; ok {
		return l
	}
	return strings.ReplaceAll(field, "_", " ")
}

func joinLabels(fields []string) string {
	labels := make([]string, 0, len(fields))
	for _, f := range fields {
		labels = append(labels, label(f))
	}
	switch len(labels) {
	case 0:
		return ""
	case 1:
		return labels[0]
	default:
		return strings.Join(labels[:len(labels)-1], ", ") + " and " + labels[len(labels)-1]
	}
}

// errorMessage turns an engine error into one corrective sentence for the user.
func errorMessage(err error) string {
	var e *apperr.Error
	if !errors.As(err, &e) {
		return msgRetryLater
	}
	switch e.Kind {
	case apperr.KindMissingRequiredField:
		return "Please provide your " + joinLabels(apperr.MissingFields(err)) + "."
	case apperr.KindInvalidFormat:
		field, _ := e.Details.(string)
		return "That " + label(field) + " doesn't look right. Please provide a valid " + label(field) + "."
	case apperr.KindExternalUnavailable:
		return msgRetryLater
	case apperr.KindAlreadyCompleted, apperr.KindValidation:
		return sentence(e.Message)
	default:
		return msgRetryLater
	}
}

func sentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	s = strings.ToUpper(s[:1]) + s[1:]
	if !strings.HasSuffix(s, ".") {
		s += "."
	}
	return s
}

// progress describes where the session stands and what it still needs.
func progress(s *domain.Session) string {
	stage := string(s.CurrentStage)
	if s.CurrentStage.IsTerminal() {
		return "Current stage: " + stage + ". The application is complete."
	}
	if s.CurrentStage == domain.StageApplication {
		if missing := domain.MissingContactFields(s); len(missing) > 0 {
			return "Current stage: " + stage + ". Still needed: " + joinLabels(missing) + "."
		}
	}
	if reason := domain.GuardBlockReason(s); reason != "" {
		return "Current stage: " + stage + ". Waiting on: " + reason + "."
	}
	return "Current stage: " + stage + "."
}
