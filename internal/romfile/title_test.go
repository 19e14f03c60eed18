package romfile

import "testing"

func TestDisplayTitle(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase gets title casing", "super mario bros", "Super Mario Bros"},
		{"mixed case trusted", "LoZ: Ocarina of Time", "LoZ: Ocarina of Time"},
		{"platform key", "snes", "Snes"},
		{"whitespace trimmed", "  chrono trigger ", "Chrono Trigger"},
		{"empty", "", "Unknown Title"},
		{"whitespace only", "   ", "Unknown Title"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DisplayTitle(tc.input); got != tc.want {
				t.Fatalf("DisplayTitle(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
