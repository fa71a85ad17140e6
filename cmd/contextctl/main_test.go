package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestInspect_Text(t *testing.T) {
	path := writeTemp(t, "notes.txt", "Hello world")

	out, err := runCLI(t, "inspect", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Tokens:    2") {
		t.Errorf("expected 2 tokens in output, got:\n%s", out)
	}
	if !strings.Contains(out, "Tier:      T1") {
		t.Errorf("expected tier T1 in output, got:\n%s", out)
	}
	if !strings.Contains(out, "Truncated: no") {
		t.Errorf("expected not truncated, got:\n%s", out)
	}
}

func TestInspect_JSON(t *testing.T) {
	path := writeTemp(t, "notes.md", "Hello world")

	out, err := runCLI(t, "inspect", "--json", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var res inspectResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if res.TokenCount != 2 {
		t.Errorf("expected 2 tokens, got %d", res.TokenCount)
	}
	if res.Tier.Tier != 1 {
		t.Errorf("expected tier 1, got %d", res.Tier.Tier)
	}
	if res.Budget.Document.OriginalTokens != 2 {
		t.Errorf("expected original tokens 2, got %d", res.Budget.Document.OriginalTokens)
	}
}

func TestInspect_MissingFile(t *testing.T) {
	if _, err := runCLI(t, "inspect", filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestInspect_UnsupportedType(t *testing.T) {
	path := writeTemp(t, "deck.pptx", "binary")
	if _, err := runCLI(t, "inspect", path); err == nil {
		t.Error("expected error for unsupported file type")
	}
}

func TestAssemble_DirectTier(t *testing.T) {
	path := writeTemp(t, "short.txt", "A short document that fits easily.")

	out, err := runCLI(t, "assemble", path, "--query", "anything")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "A short document that fits easily.\n") {
		t.Errorf("expected verbatim excerpt first, got:\n%s", out)
	}
	if !strings.Contains(out, "# Full document injected without modification.") {
		t.Errorf("expected strategy note, got:\n%s", out)
	}
}
