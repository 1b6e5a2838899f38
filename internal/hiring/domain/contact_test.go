package domain

import "testing"

func verifiedSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession("s", testNow)
	if _, err := s.SetEmail("jane@x.com", testNow); err != nil {
		t.Fatalf("SetEmail() error = %v", err)
	}
	if _, err := s.SetPhone("+16502530000", testNow); err != nil {
		t.Fatalf("SetPhone() error = %v", err)
	}
	v := s.EnsureVerification()
	v.Email = ChannelVerification{UserID: "u1", ForVerification: "jane@x.com", Verified: true, Status: ChannelVerified}
	v.Phone = ChannelVerification{UserID: "u2", ForVerification: "+16502530000", Verified: true, Status: ChannelVerified}
	return s
}

func TestChangingVerifiedContactResetsChannel(t *testing.T) {
	tests := []struct {
		name    string
		change  func(s *Session) (bool, error)
		channel Channel
		other   Channel
	}{
		{
			name:    "email",
			change:  func(s *Session) (bool, error) { return s.SetEmail("Jane.New@X.com", testNow) },
			channel: ChannelEmail,
			other:   ChannelPhone,
		},
		{
			name:    "phone",
			change:  func(s *Session) (bool, error) { return s.SetPhone("+44 20 7946 0958", testNow) },
			channel: ChannelPhone,
			other:   ChannelEmail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := verifiedSession(t)
			reset, err := tt.change(s)
			if err != nil {
				t.Fatalf("change error = %v", err)
			}
			if !reset {
				t.Fatalf("expected reset to be reported")
			}
			rec := s.Verification.Channel(tt.channel)
			if rec.Verified || rec.ForVerification != "" {
				t.Fatalf("channel not reset: %+v", rec)
			}
			if !s.Verification.Channel(tt.other).Verified {
				t.Fatalf("other channel reset too")
			}
		})
	}
}

func TestSameContactValueKeepsVerification(t *testing.T) {
	s := verifiedSession(t)
	reset, err := s.SetEmail("  JANE@x.com ", testNow)
	if err != nil {
		t.Fatalf("SetEmail() error = %v", err)
	}
	if reset || !s.Verification.Email.Verified {
		t.Fatalf("unchanged email reset verification")
	}
}

func TestNormalizers(t *testing.T) {
	if _, err := NormalizeEmail("no-at-sign"); err == nil {
		t.Fatalf("NormalizeEmail accepted invalid input")
	}
	if v, err := NormalizeEmail(" Jane@X.com "); err != nil || v != "jane@x.com" {
		t.Fatalf("NormalizeEmail() = %q, %v", v, err)
	}
	if _, err := NormalizePhone("call me"); err == nil {
		t.Fatalf("NormalizePhone accepted invalid input")
	}
	if v, err := NormalizeName("  <i>Jane</i>   Doe "); err != nil || v != "Jane Doe" {
		t.Fatalf("NormalizeName() = %q, %v", v, err)
	}
	if err := ValidateAge(12); err == nil {
		t.Fatalf("ValidateAge accepted 12")
	}
}
