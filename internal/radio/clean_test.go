package radio

import "testing"

func TestCleanField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Song Title (Explicit)", "Song Title"},
		{"Song Title [Clean Version]", "Song Title"},
		{"Song Title (Radio Edit)", "Song Title"},
		{"Song Title (Album Version)", "Song Title"},
		{"Song Title (Remastered 2011)", "Song Title"},
		{"Song Title - Single", "Song Title"},
		{"Song Title - EP", "Song Title"},
		{"Song Title [feat. Someone]", "Song Title"},
		{"Song Title [ft. Someone Else]", "Song Title"},
		{"  Plain Song  ", "Plain Song"},
		{"", ""},
		// "- Single" only strips as a trailing marker
		{"Single - Minded", "Single - Minded"},
	}
	for _, tt := range tests {
		if got := CleanField(tt.in); got != tt.want {
			t.Fatalf("CleanField(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
