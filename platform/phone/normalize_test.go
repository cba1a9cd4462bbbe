package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	cases := []struct {
		input  string
		region string
		want   string
	}{
		{"06 12 34 56 78", "FR", "+33612345678"},
		{"+33 6 12 34 56 78", "", "+33612345678"},
		{"  0612345678  ", "", "+33612345678"},
		{"(212) 555-0175", "US", "+12125550175"},
		{"", "FR", ""},
		{"   ", "FR", ""},
		{"not a number", "FR", "not a number"},
		{"12345", "FR", "12345"},
	}

	for _, tc := range cases {
		if got := NormalizeE164(tc.input, tc.region); got != tc.want {
			t.Errorf("NormalizeE164(%q, %q) = %q, want %q", tc.input, tc.region, got, tc.want)
		}
	}
}
