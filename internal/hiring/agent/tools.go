package agent

import (
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"hiring_assistant_backend/internal/hiring/domain"
	"hiring_assistant_backend/internal/hiring/tools"
)

const msgNoSession = "No active session is bound to this conversation."

// ToolOutput is returned by every hiring tool.
type ToolOutput struct {
	Message string `json:"message"`
}

type emptyInput struct{}

type consentInput struct {
	Consent  bool   `json:"consent"`            // true when the applicant agreed to continue
	JobID    string `json:"jobId,omitempty"`    // job the applicant is applying for
	Language string `json:"language,omitempty"` // conversation language, e.g. "en"
}

type qualificationInput struct {
	AgeConfirmed      *bool   `json:"ageConfirmed,omitempty"`
	WorkAuthorization *bool   `json:"workAuthorization,omitempty"`
	ShiftPreference   *string `json:"shiftPreference,omitempty"`
	AvailabilityStart *string `json:"availabilityStart,omitempty"`
	Transportation    *bool   `json:"transportation,omitempty"`
	HoursPreference   *string `json:"hoursPreference,omitempty"`
}

type nameInput struct {
	FullName string `json:"fullName"`
}

type emailInput struct {
	Email string `json:"email"`
}

type phoneInput struct {
	PhoneNumber string `json:"phoneNumber"`
}

type ageInput struct {
	Age int `json:"age"`
}

type backgroundInput struct {
	YearsExperience  *int    `json:"yearsExperience,omitempty"`
	PreviousEmployer *string `json:"previousEmployer,omitempty"`
	PreviousRole     *string `json:"previousRole,omitempty"`
	Skills           *string `json:"skills,omitempty"`
	Education        *string `json:"education,omitempty"`
}

type codeInput struct {
	Code string `json:"code"`
}

type channelInput struct {
	Channel string `json:"channel"` // "email" or "phone"
}

type concludeInput struct {
	Reason string `json:"reason,omitempty"`
}

// handle wraps a facade call so it runs against the session bound to the run.
func handle[In any](a *Agent, fn func(ctx tool.Context, s *domain.Session, in In) string) func(tool.Context, In) (ToolOutput, error) {
	return func(ctx tool.Context, in In) (ToolOutput, error) {
		s, ok := a.bound(ctx.SessionID())
		if !ok {
			a.log.Warn("hiring tool called without bound session", "adkSession", ctx.SessionID())
			return ToolOutput{Message: msgNoSession}, nil
		}
		return ToolOutput{Message: fn(ctx, s, in)}, nil
	}
}

func newTool[In any](a *Agent, name, description string, fn func(ctx tool.Context, s *domain.Session, in In) string) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{Name: name, Description: description}, handle(a, fn))
}

func (a *Agent) buildTools() ([]tool.Tool, error) {
	t := a.tools
	builders := []func() (tool.Tool, error){
		func() (tool.Tool, error) {
			return newTool(a, "give_consent", "Record whether the applicant agreed to start the application.",
				func(ctx tool.Context, s *domain.Session, in consentInput) string {
					return t.GiveConsent(ctx, s, in.Consent, in.JobID, in.Language)
				})
		},
		func() (tool.Tool, error) {
			return newTool(a, "save_qualification", "Save eligibility answers: age confirmation (18+), work authorization, shift preference, availability start date, transportation and hours preference. Only include answers the applicant actually gave.",
				func(ctx tool.Context, s *domain.Session, in qualificationInput) string {
					return t.SaveQualification(ctx, s, tools.QualificationInput(in))
				})
		},
		func() (tool.Tool, error) {
			return newTool(a, "save_name", "Save the applicant's full name.",
				func(ctx tool.Context, s *domain.Session, in nameInput) string {
					return t.SaveName(ctx, s, in.FullName)
				})
		},
		func() (tool.Tool, error) {
			return newTool(a, "save_email", "Save the applicant's email address.",
				func(ctx tool.Context, s *domain.Session, in emailInput) string {
					return t.SaveEmail(ctx, s, in.Email)
				})
		},
		func() (tool.Tool, error) {
			return newTool(a, "save_phone", "Save the applicant's phone number.",
				func(ctx tool.Context, s *domain.Session, in phoneInput) string {
					return t.SavePhone(ctx, s, in.PhoneNumber)
				})
		},
		func() (tool.Tool, error) {
			return newTool(a, "save_age", "Save the applicant's age in years.",
				func(ctx tool.Context, s *domain.Session, in ageInput) string {
					return t.SaveAge(ctx, s, in.Age)
				})
		},
		func() (tool.Tool, error) {
			return newTool(a, "save_background", "Save optional work background: years of experience, previous employer and role, skills, education.",
				func(ctx tool.Context, s *domain.Session, in backgroundInput) string {
					return t.SaveBackground(ctx, s, tools.BackgroundInput(in))
				})
		},
		func() (tool.Tool, error) {
			return newTool(a, "create_candidate_early", "Create the candidate record once name, email and phone number are saved.",
				func(ctx tool.Context, s *domain.Session, _ emptyInput) string {
					return t.CreateCandidateEarly(ctx, s)
				})
		},
		func() (tool.Tool, error) {
			return newTool(a, "send_email_code", "Send a verification code to the saved email address.",
				func(ctx tool.Context, s *domain.Session, _ emptyInput) string {
					return t.SendCode(ctx, s, domain.ChannelEmail)
				})
		},
		func() (tool.Tool, error) {
			return newTool(a, "validate_email_code", "Check the email verification code the applicant entered.",
				func(ctx tool.Context, s *domain.Session, in codeInput) string {
					return t.ValidateCode(ctx, s, domain.ChannelEmail, in.Code)
				})
		},
		func() (tool.Tool, error) {
			return newTool(a, "send_phone_code", "Send a verification code by text message to the saved phone number.",
				func(ctx tool.Context, s *domain.Session, _ emptyInput) string {
					return t.SendCode(ctx, s, domain.ChannelPhone)
				})
		},
		func() (tool.Tool, error) {
			return newTool(a, "validate_phone_code", "Check the phone verification code the applicant entered.",
				func(ctx tool.Context, s *domain.Session, in codeInput) string {
					return t.ValidateCode(ctx, s, domain.ChannelPhone, in.Code)
				})
		},
		func() (tool.Tool, error) {
			return newTool(a, "update_email", "Correct a previously saved email address. A verified address must be verified again.",
				func(ctx tool.Context, s *domain.Session, in emailInput) string {
					return t.UpdateContact(ctx, s, domain.ChannelEmail, in.Email)
				})
		},
		func() (tool.Tool, error) {
			return newTool(a, "update_phone", "Correct a previously saved phone number. A verified number must be verified again.",
				func(ctx tool.Context, s *domain.Session, in phoneInput) string {
					return t.UpdateContact(ctx, s, domain.ChannelPhone, in.PhoneNumber)
				})
		},
		func() (tool.Tool, error) {
			return newTool(a, "skip_verification", "Skip verification of one channel when the applicant cannot receive codes there. channel is \"email\" or \"phone\".",
				func(ctx tool.Context, s *domain.Session, in channelInput) string {
					ch, ok := parseChannel(in.Channel)
					if !ok {
						return "Unknown channel. Use \"email\" or \"phone\"."
					}
					return t.SkipVerification(ctx, s, ch)
				})
		},
		func() (tool.Tool, error) {
			return newTool(a, "patch_candidate_with_report", "Attach the fit report to the candidate record.",
				func(ctx tool.Context, s *domain.Session, _ emptyInput) string {
					return t.PatchCandidateWithReport(ctx, s)
				})
		},
		func() (tool.Tool, error) {
			return newTool(a, "conclude_session", "End the conversation when the applicant says goodbye or the application is complete.",
				func(ctx tool.Context, s *domain.Session, in concludeInput) string {
					return t.ConcludeSession(ctx, s, in.Reason)
				})
		},
		func() (tool.Tool, error) {
			return newTool(a, "get_progress", "Report the current stage and what is still needed.",
				func(_ tool.Context, s *domain.Session, _ emptyInput) string {
					return t.Progress(s)
				})
		},
	}

	out := make([]tool.Tool, 0, len(builders))
	for _, build := range builders {
		tl, err := build()
		if err != nil {
			return nil, err
		}
		out = append(out, tl)
	}
	return out, nil
}

func parseChannel(v string) (domain.Channel, bool) {
	switch domain.Channel(v) {
	case domain.ChannelEmail:
		return domain.ChannelEmail, true
	case domain.ChannelPhone:
		return domain.ChannelPhone, true
	}
	return "", false
}
