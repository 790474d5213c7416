package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolvePath(t *testing.T) {
	if got := ResolvePath("/base", "rel/file"); got != filepath.Join("/base", "rel/file") {
		t.Errorf("relative: %q", got)
	}
	if got := ResolvePath("/base", "/abs/file"); got != filepath.Clean("/abs/file") {
		t.Errorf("absolute: %q", got)
	}
}

func TestWriteJSONFileCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.json")
	if err := WriteJSONFile(path, map[string]int{"n": 1}); err != nil {
		t.Fatalf("WriteJSONFile: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(b) != "{\n  \"n\": 1\n}" {
		t.Errorf("content: %q", b)
	}
}

func TestSterileName(t *testing.T) {
	cases := map[string]string{
		"My Talk":        "My_Talk",
		"a/b\\c:d":       "abcd",
		"  spaced  ":     "spaced",
		"ok_name-1.2":    "ok_name-1.2",
		"p?*<>|resent":   "present",
		"Vánoce u nás!?": "Vnoce_u_ns",
	}
	for in, want := range cases {
		if got := SterileName(in); got != want {
			t.Errorf("SterileName(%q) = %q, want %q", in, got, want)
		}
	}
}
