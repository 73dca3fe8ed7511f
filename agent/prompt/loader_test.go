package prompt

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
)

func TestDefaultPromptSet(t *testing.T) {
	t.Parallel()

	set := DefaultPromptSet()
	if !strings.Contains(set.SystemInstructions, set.IdentityMarker) {
		t.Fatal("system instructions must carry the identity marker")
	}
	if !strings.HasPrefix(set.SystemInstructions, "**Responde SIEMPRE en español") {
		t.Fatalf("unexpected prompt head: %.40s", set.SystemInstructions)
	}
}

func TestLoadPromptSetOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "system.txt")
	if err := os.WriteFile(path, []byte("  ## Identidad\nEres otra persona.\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv(SystemPromptFileEnv, path)

	set, err := LoadPromptSet()
	if err != nil {
		t.Fatalf("LoadPromptSet() error = %v", err)
	}
	if set.SystemInstructions != "## Identidad\nEres otra persona." {
		t.Fatalf("unexpected instructions: %q", set.SystemInstructions)
	}
	if set.Greeting != Greeting {
		t.Fatalf("greeting changed: %q", set.Greeting)
	}
}

func TestLoadPromptSetMissingFile(t *testing.T) {
	t.Setenv(SystemPromptFileEnv, filepath.Join(t.TempDir(), "missing.txt"))

	_, err := LoadPromptSet()
	if !errors.Is(err, contractx.ErrPromptMissing) {
		t.Fatalf("expected ErrPromptMissing, got %v", err)
	}
}
