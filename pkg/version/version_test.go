package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	info := Info()
	for _, key := range []string{"version", "buildTime", "gitCommit", "goVersion"} {
		if info[key] == "" {
			t.Errorf("missing %s", key)
		}
	}
}

func TestString(t *testing.T) {
	s := String()
	if !strings.HasPrefix(s, "oembridge "+Version) {
		t.Errorf("unexpected version string %q", s)
	}
	if !strings.Contains(s, GoVersion) {
		t.Errorf("go version missing from %q", s)
	}
}
