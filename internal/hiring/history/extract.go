package history

import (
	"regexp"
	"strings"

	"hiring_assistant_backend/internal/hiring/ports"
	"hiring_assistant_backend/platform/phone"
)

// Roles recorded in transcripts.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s().\-]{5,}\d`)
	namePattern  = regexp.MustCompile(`(?:[Mm]y name is|[Mm]y full name is|I'm|I am|[Tt]his is|[Nn]ame:)\s+([A-Z][A-Za-z'\-]+(?:\s+[A-Z][A-Za-z'\-]+){0,3})`)

	// Dates and clock times are masked before phone matching.
	datePattern = regexp.MustCompile(`\b(?:\d{4}[-/.]\d{1,2}[-/.]\d{1,2}|\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4})\b`)
	timePattern = regexp.MustCompile(`\b\d{1,2}:\d{2}(?::\d{2})?\b`)
)

// Capitalized words that follow "I'm" or "I am" without being a name.
var notNameWords = map[string]struct{}{
	"available": {}, "interested": {}, "ready": {}, "happy": {}, "free": {},
	"looking": {}, "here": {}, "not": {}, "sorry": {}, "fine": {}, "good": {},
	"currently": {}, "based": {}, "from": {}, "in": {}, "on": {}, "at": {},
	"a": {}, "an": {}, "the": {}, "just": {}, "also": {}, "still": {},
	"monday": {}, "tuesday": {}, "wednesday": {}, "thursday": {}, "friday": {},
	"saturday": {}, "sunday": {}, "today": {}, "tomorrow": {},
	"january": {}, "february": {}, "march": {}, "april": {}, "may": {}, "june": {},
	"july": {}, "august": {}, "september": {}, "october": {}, "november": {}, "december": {},
}

// Contacts are contact details found in a transcript. Empty fields were not found.
type Contacts struct {
	FullName    string
	Email       string
	PhoneNumber string
}

// Empty reports whether nothing was found.
func (c Contacts) Empty() bool {
	return c.FullName == "" && c.Email == "" && c.PhoneNumber == ""
}

// ExtractContacts scans user turns newest first and keeps the most recent
// usable mention of each contact detail. A mention that does not look like a
// name or a phone number is skipped and older turns are tried. Email values
// are raw; callers validate them.
func ExtractContacts(entries []ports.HistoryEntry) Contacts {
	var c Contacts
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if entry.Role != RoleUser {
			continue
		}
		text := entry.Text
		if c.Email == "" {
			c.Email = emailPattern.FindString(text)
		}
		if c.PhoneNumber == "" {
			c.PhoneNumber = findPhone(text)
		}
		if c.FullName == "" {
			c.FullName = findName(text)
		}
		if c.FullName != "" && c.Email != "" && c.PhoneNumber != "" {
			break
		}
	}
	return c
}

func findPhone(text string) string {
	masked := emailPattern.ReplaceAllString(text, " ")
	masked = datePattern.ReplaceAllString(masked, " ")
	masked = timePattern.ReplaceAllString(masked, " ")
	for _, m := range phonePattern.FindAllString(masked, -1) {
		m = strings.TrimSpace(m)
		if phone.Plausible(m) {
			return m
		}
	}
	return ""
}

func findName(text string) string {
	for _, m := range namePattern.FindAllStringSubmatch(text, -1) {
		if len(m) != 2 {
			continue
		}
		name := strings.TrimSpace(m[1])
		first, _, _ := strings.Cut(name, " ")
		if _, skip := notNameWords[strings.ToLower(first)]; skip {
			continue
		}
		return name
	}
	return ""
}
