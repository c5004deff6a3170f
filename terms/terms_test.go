package terms

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	got := Normalize([]string{" John Smith ", "SMITH", "john smith", "", "Smith", "Case 123"})
	assert.Equal(t, List{"John Smith", "SMITH", "Case 123"}, got)
}

func TestNormalizeKeepsFirstSpelling(t *testing.T) {
	got := Normalize([]string{"McDonald", "MCDONALD", "mcdonald"})
	require.Len(t, got, 1)
	assert.Equal(t, "McDonald", got[0])
}

func TestMerge(t *testing.T) {
	base := Normalize([]string{"John Smith"})
	got := base.Merge([]string{"Case 123", "JOHN SMITH", "  "})
	assert.Equal(t, List{"John Smith", "Case 123"}, got)
}

func TestParseTermArray(t *testing.T) {
	terms, err := parseTermArray("Here are the terms:\n[\"John Smith\", \"Smith\", \"4:23-cr-00123\"]\nDone.")
	require.NoError(t, err)
	assert.Equal(t, []string{"John Smith", "Smith", "4:23-cr-00123"}, terms)
}

func TestParseTermArrayMalformed(t *testing.T) {
	_, err := parseTermArray("I could not find any sensitive information.")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = parseTermArray(`[{"not": "a string array"}]`)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestBuildPromptTruncates(t *testing.T) {
	long := make([]byte, maxPromptChars+100)
	for i := range long {
		long[i] = 'x'
	}
	prompt := buildPrompt(string(long))
	assert.Contains(t, prompt, "[Document truncated for analysis...]")
	assert.Less(t, len(prompt), maxPromptChars+len(promptPreamble)+len(promptClose)+100)
}

func TestCLIIdentifierMissingBinary(t *testing.T) {
	c := &CLIIdentifier{Binary: "definitely-not-installed-cli"}
	_, err := c.Identify(context.Background(), "text")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCLIIdentifierParsesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fixture script requires a POSIX shell")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-claude")
	err := os.WriteFile(script, []byte("#!/bin/sh\necho 'Sure, here you go:'\necho '[\"John Smith\", \"Smith\"]'\n"), 0o755)
	require.NoError(t, err)

	c := &CLIIdentifier{Binary: script, Timeout: 10 * time.Second}
	terms, err := c.Identify(context.Background(), "John Smith appeared in court")
	require.NoError(t, err)
	assert.Equal(t, []string{"John Smith", "Smith"}, terms)
}

func TestNewIdentifier(t *testing.T) {
	id, err := NewIdentifier("claude-cli", "")
	require.NoError(t, err)
	assert.Equal(t, "claude-cli", id.Name())

	_, err = NewIdentifier("carrier-pigeon", "")
	assert.Error(t, err)
}

func TestNewAnthropicRequiresKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := NewAnthropic("")
	assert.ErrorIs(t, err, ErrUnavailable)
}
