package sources

import "testing"

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		want   string
		wantOK bool
	}{
		{"watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"watch with params", "https://youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ", true},
		{"short link", "https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ", true},
		{"embed", "https://www.youtube.com/embed/a_b-c1234Z9", "a_b-c1234Z9", true},
		{"v path", "http://youtube.com/v/a_b-c1234Z9", "a_b-c1234Z9", true},
		{"mobile host", "https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"id too short", "https://youtu.be/short", "", false},
		{"v not first param", "https://www.youtube.com/watch?list=PL1&v=dQw4w9WgXcQ", "", false},
		{"other site", "https://vimeo.com/123456789", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractVideoID(tt.url)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ExtractVideoID(%q) = (%q, %v), want (%q, %v)", tt.url, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"PT4M13S", 253},
		{"PT1H2M3S", 3723},
		{"PT1H", 3600},
		{"PT45S", 45},
		{"PT10M", 600},
		{"PT0S", 0},
		{"P1DT2H", 93600},
		{"", 0},
		{"garbage", 0},
	}
	for _, tt := range tests {
		if got := ParseISODuration(tt.in); got != tt.want {
			t.Errorf("ParseISODuration(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestWatchURL(t *testing.T) {
	tests := []struct {
		start float64
		want  string
	}{
		{0, "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=0s"},
		{42.9, "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s"},
		{-3, "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=0s"},
	}
	for _, tt := range tests {
		if got := WatchURL("dQw4w9WgXcQ", tt.start); got != tt.want {
			t.Errorf("WatchURL(%v) = %q, want %q", tt.start, got, tt.want)
		}
	}
}
