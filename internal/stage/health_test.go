package stage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBinaryHealthResolvesPathBinaries(t *testing.T) {
	binDir := t.TempDir()
	target := filepath.Join(binDir, "yt-dlp")
	if err := os.WriteFile(target, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", binDir)

	health := BinaryHealth("fetch", "yt-dlp")
	if !health.Ready {
		t.Fatalf("expected ready, got %+v", health)
	}
	if health.Name != "fetch" {
		t.Fatalf("unexpected name %q", health.Name)
	}

	health = BinaryHealth("transcribe", "whisper")
	if health.Ready {
		t.Fatalf("expected missing binary to be unhealthy, got %+v", health)
	}
	if health.Detail == "" {
		t.Fatal("expected detail naming the missing binary")
	}
}
