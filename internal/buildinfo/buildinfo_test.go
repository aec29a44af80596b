package buildinfo

import "testing"

func TestStamp(t *testing.T) {
	defer func(v, c, d string) { Version, Commit, Date = v, c, d }(Version, Commit, Date)

	cases := []struct {
		version, commit, date string
		short, full           string
	}{
		{"dev", "", "", "dev", "dev"},
		{"dev", "3f2a9c1", "", "3f2a9c1", "3f2a9c1"},
		{"v1.0.0", "3f2a9c1", "2024-02-28", "v1.0.0", "v1.0.0 (3f2a9c1, 2024-02-28)"},
		{"v1.0.0", "", "2024-02-28", "v1.0.0", "v1.0.0 (2024-02-28)"},
		{"", "3f2a9c1", "2024-02-28", "3f2a9c1", "3f2a9c1 (2024-02-28)"},
	}
	for _, tc := range cases {
		Version, Commit, Date = tc.version, tc.commit, tc.date
		if got := Short(); got != tc.short {
			t.Fatalf("Short()=%q, want %q", got, tc.short)
		}
		if got := String(); got != tc.full {
			t.Fatalf("String()=%q, want %q", got, tc.full)
		}
	}
}
