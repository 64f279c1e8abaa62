package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"national format", "(212) 555-0100", "+12125550100"},
		{"international prefix kept", "+31 6 12345678", "+31612345678"},
		{"already normalized", "+12125550100", "+12125550100"},
		{"whitespace trimmed", "  +1 212 555 0100  ", "+12125550100"},
		{"invalid returned trimmed", " not a phone ", "not a phone"},
		{"too short returned as-is", "12345", "12345"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeE164(tc.input)
			if got != tc.want {
				t.Fatalf("NormalizeE164(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
