package utils

import (
	"net/url"
	"strings"
	"testing"
)

func TestEmailHash(t *testing.T) {
	// md5("abc")
	if got := EmailHash("  ABC "); got != "900150983cd24fb0d6963f7d28e17f72" {
		t.Errorf("EmailHash = %s", got)
	}
}

func TestAvatarURL(t *testing.T) {
	got := AvatarURL("Someone@Example.com", "x", 80)
	want := "https://gravatar.loli.net/avatar/" + EmailHash("someone@example.com") + "?s=80&d=retro"
	if got != want {
		t.Errorf("AvatarURL = %s, want %s", got, want)
	}

	got = AvatarURL("", "nainong", 40)
	if !strings.HasPrefix(got, "data:image/svg+xml,") {
		t.Fatalf("Expected SVG data URL, got %s", got)
	}
	svg, err := url.PathUnescape(strings.TrimPrefix(got, "data:image/svg+xml,"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(svg, ">N</text>") {
		t.Errorf("Expected initial N, got %s", svg)
	}
	// 'n' = 110, 110 % 10 = 0
	if !strings.Contains(svg, `fill="#6366f1"`) {
		t.Errorf("Expected first palette colour, got %s", svg)
	}
	if !strings.Contains(svg, `width="40"`) {
		t.Errorf("Expected size 40, got %s", svg)
	}
}

func TestInitialAvatarEmptyNickname(t *testing.T) {
	svg, _ := url.PathUnescape(strings.TrimPrefix(InitialAvatarURL("", 80), "data:image/svg+xml,"))
	if !strings.Contains(svg, ">?</text>") {
		t.Errorf("Expected ? placeholder, got %s", svg)
	}
}
