package match

import "testing"

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"matched", "viewed", "contacted", "shortlisted", "rejected", "hired"} {
		if _, ok := ParseStatus(s); !ok {
			t.Fatalf("expected %q to parse", s)
		}
	}
	if _, ok := ParseStatus("archived"); ok {
		t.Fatalf("expected unknown status to fail")
	}
	if _, ok := ParseStatus(""); ok {
		t.Fatalf("expected empty status to fail")
	}
}

func TestCanTransition_ForwardOnly(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusMatched, StatusViewed, true},
		{StatusMatched, StatusRejected, true},
		{StatusMatched, StatusHired, true},
		{StatusViewed, StatusContacted, true},
		{StatusContacted, StatusShortlisted, true},
		{StatusShortlisted, StatusHired, true},
		{StatusShortlisted, StatusRejected, true},

		{StatusContacted, StatusViewed, false},
		{StatusShortlisted, StatusContacted, false},
		{StatusViewed, StatusViewed, false},
		{StatusViewed, StatusMatched, false},
		{StatusRejected, StatusHired, false},
		{StatusHired, StatusShortlisted, false},
		{StatusRejected, StatusViewed, false},
	}

	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	if !StatusRejected.Terminal() || !StatusHired.Terminal() {
		t.Fatalf("rejected and hired must be terminal")
	}
	if StatusMatched.Terminal() || StatusShortlisted.Terminal() {
		t.Fatalf("non-terminal status reported terminal")
	}
}
