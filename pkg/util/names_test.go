package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTimestampedName(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := TimestampedName("sensor_data", ts, "json")
	if got != "sensor_data_1728555010.json" {
		t.Fatalf("unexpected name %s", got)
	}
}

func TestCreateUniqueAvoidsOverwrite(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.json"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, name, err := CreateUnique(dir, "a.json")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if name != "a-1.json" {
		t.Fatalf("expected a-1.json, got %s", name)
	}
	b, _ := os.ReadFile(filepath.Join(dir, "a.json"))
	if string(b) != "old" {
		t.Fatalf("existing file was modified")
	}
}

func TestExtension(t *testing.T) {
	cases := map[string]string{
		"clip.WEBM":         "webm",
		"../../etc/x.mp4":   "mp4",
		"C:\\videos\\a.mov": "mov",
		"noext":             "bin",
		"":                  "bin",
	}
	for in, want := range cases {
		if got := Extension(in, "bin"); got != want {
			t.Errorf("Extension(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSafeName(t *testing.T) {
	for _, ok := range []string{"recorded_video_1.webm", "a.b"} {
		if !SafeName(ok) {
			t.Errorf("expected %q to be safe", ok)
		}
	}
	for _, bad := range []string{"", ".", "..", "../x", "a/b", "a\\b"} {
		if SafeName(bad) {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}
