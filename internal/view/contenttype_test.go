package view

import "testing"

func TestContentType(t *testing.T) {
	cases := []struct {
		path     string
		declared string
		want     string
	}{
		{"index.html", "", "text/html"},
		{"styles/app.CSS", "", "text/css"},
		{"app.js", "application/octet-stream", "application/javascript"},
		{"data/suites.json", "", "application/json"},
		{"img/logo.png", "", "image/png"},
		{"icons/x.svg", "", "image/svg+xml"},
		{"favicon.ico", "", "image/x-icon"},
		{"fonts/a.woff2", "", "application/octet-stream"},
		{"README", "", "application/octet-stream"},
		{"index.html", "text/plain", "text/plain"},
		{"blob.bin", "font/woff2", "font/woff2"},
	}
	for _, tc := range cases {
		if got := ContentType(tc.path, tc.declared); got != tc.want {
			t.Fatalf("ContentType(%q, %q) = %q, want %q", tc.path, tc.declared, got, tc.want)
		}
	}
}

func TestExtractKey(t *testing.T) {
	cases := []struct {
		raw     string
		key     string
		claimed bool
		wantErr bool
	}{
		{"/__view__/index.html", "index.html", true, false},
		{"/report/42/__view__/img/logo.png", "img/logo.png", true, false},
		{"/__view__/a%20b.html", "a b.html", true, false},
		{"/__view__/data/x.json?v=3", "data/x.json", true, false},
		{"/__view__/a/__view__/b", "a/__view__/b", true, false},
		{"/__view__/", "", true, false},
		{"/__view__/bad%zz", "", true, true},
		{"/index.html", "", false, false},
		{"/__view__", "", false, false},
	}
	for _, tc := range cases {
		key, claimed, err := ExtractKey(tc.raw, DefaultMarker)
		if claimed != tc.claimed {
			t.Fatalf("%s: claimed = %v, want %v", tc.raw, claimed, tc.claimed)
		}
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: unexpected error state: %v", tc.raw, err)
		}
		if key != tc.key {
			t.Fatalf("%s: key = %q, want %q", tc.raw, key, tc.key)
		}
	}
}

func TestExtractKeyEmptyMarker(t *testing.T) {
	if _, claimed, _ := ExtractKey("/__view__/a", ""); claimed {
		t.Fatalf("empty marker must never claim")
	}
}
