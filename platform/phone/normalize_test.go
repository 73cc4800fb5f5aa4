package phone

import "testing"

func TestNormalizeE164EmptyInputStaysEmpty(t *testing.T) {
	if got := NormalizeE164("", "US"); got != "" {
		t.Fatalf("expected empty output for empty input, got %q", got)
	}
	if got := NormalizeE164("   ", "US"); got != "" {
		t.Fatalf("expected empty output for whitespace input, got %q", got)
	}
}

func TestNormalizeE164NationalNumberUsesCountryCode(t *testing.T) {
	if got := NormalizeE164("(555) 123-0000", "US"); got != "+15551230000" {
		t.Fatalf("expected +15551230000, got %q", got)
	}
	if got := NormalizeE164("020 7946 0018", "GB"); got != "+442079460018" {
		t.Fatalf("expected +442079460018, got %q", got)
	}
}

func TestNormalizeE164AlreadyCanonicalUnchanged(t *testing.T) {
	if got := NormalizeE164("+15551230000", "US"); got != "+15551230000" {
		t.Fatalf("expected canonical number to pass through, got %q", got)
	}
}

func TestNormalizeE164UnparsableReturnsTrimmedInput(t *testing.T) {
	if got := NormalizeE164(" not-a-number ", "US"); got != "not-a-number" {
		t.Fatalf("expected trimmed input back, got %q", got)
	}
}

func TestNormalizeE164MissingCountryCodeFallsBackToDefault(t *testing.T) {
	if got := NormalizeE164("(555) 123-0000", ""); got != "+15551230000" {
		t.Fatalf("expected default region parse, got %q", got)
	}
}
