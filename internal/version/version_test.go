package version

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestColoredWithoutColor(t *testing.T) {
	saved := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = saved }()

	if got := Colored(); got != Version {
		t.Fatalf("Colored() = %q, want %q", got, Version)
	}
}

func TestBannerOptionalFields(t *testing.T) {
	saved := color.NoColor
	color.NoColor = true
	origCommit, origDate := GitCommit, BuildDate
	defer func() {
		color.NoColor = saved
		GitCommit, BuildDate = origCommit, origDate
	}()

	GitCommit, BuildDate = "", ""
	if b := Banner(); strings.Contains(b, "commit") || !strings.HasPrefix(b, "plcc "+Version) {
		t.Fatalf("banner without build info:\n%s", b)
	}
	GitCommit, BuildDate = "abc123", "2024-01-15T10:30:00Z"
	b := Banner()
	if !strings.Contains(b, "commit: abc123") || !strings.Contains(b, "built:  2024-01-15T10:30:00Z") {
		t.Fatalf("banner with build info:\n%s", b)
	}
}

func TestColoredKeepsMalformedVersion(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()
	Version = "snapshot"
	if got := Colored(); got != "snapshot" {
		t.Fatalf("Colored() = %q", got)
	}
}
