package ui

import "testing"

func TestSetTheme(t *testing.T) {
	saved := GetCurrentTheme()
	defer SetCurrentTheme(saved)

	tests := []struct {
		in   string
		want string
	}{
		{"light", "light"},
		{"none", "none"},
		{"dark", "dark"},
		{"sepia", "dark"},
	}
	for _, tt := range tests {
		SetTheme(tt.in)
		if got := GetCurrentTheme().Name; got != tt.want {
			t.Errorf("SetTheme(%q) selected %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInitTheme(t *testing.T) {
	saved := GetCurrentTheme()
	defer SetCurrentTheme(saved)

	InitTheme("light")
	if GetCurrentTheme().Name != "light" {
		t.Error("the configured theme should be selected")
	}

	t.Setenv("NO_COLOR", "1")
	InitTheme("light")
	if GetCurrentTheme().Name != "none" {
		t.Error("NO_COLOR should select the plain theme")
	}
}

func TestValidThemeName(t *testing.T) {
	for _, name := range []string{"dark", "light", "none"} {
		if !ValidThemeName(name) {
			t.Errorf("%q should be valid", name)
		}
	}
	if ValidThemeName("sepia") {
		t.Error("unknown names are invalid")
	}
}

func TestStylesFor_NoColorIsPlain(t *testing.T) {
	s := StylesFor(NoColorTheme)
	if got := s.Error.Render("FAILURE"); got != "FAILURE" {
		t.Errorf("plain theme rendered %q", got)
	}
	if got := s.Title.Render("Search"); got != "Search" {
		t.Errorf("plain theme rendered %q", got)
	}
}
