package validator

import (
	"strings"
	"testing"
)

func TestValidateUserID(t *testing.T) {
	for _, ok := range []string{"fac001", "HOD-CSE", "dean_01"} {
		if err := ValidateUserID(ok); err != nil {
			t.Errorf("ValidateUserID(%q) = %v, want nil", ok, err)
		}
	}
	for _, bad := range []string{"", "ab", "has space", "x$ne", strings.Repeat("a", 51)} {
		if err := ValidateUserID(bad); err == nil {
			t.Errorf("ValidateUserID(%q) = nil, want error", bad)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("Str0ng!pw"); err != nil {
		t.Errorf("strong password rejected: %v", err)
	}
	for _, bad := range []string{"Sh0r!", "alllower1!", "ALLUPPER1!", "NoDigits!!", "NoSpecial12"} {
		if err := ValidatePassword(bad); err == nil {
			t.Errorf("ValidatePassword(%q) = nil, want error", bad)
		}
	}
}

func TestSanitize(t *testing.T) {
	if got := Sanitize("  needs\x00 review \n"); got != "needs review" {
		t.Errorf("got %q", got)
	}
}

func TestValidateText(t *testing.T) {
	if err := ValidateText("reason", strings.Repeat("x", 11), 10); err == nil {
		t.Error("expected length error")
	}
}
