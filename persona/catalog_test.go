package persona

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePrompts = `[
  {"category": "TestCategory - PL", "system prompt": "System prompt PL.", "focus": ["F1 PL", "F2 PL", "F3 PL"], "guidelines": ["G1 PL", "G2 PL"]},
  {"category": "TestCategory - ENG", "system prompt": "System prompt ENG.", "focus": ["F1 ENG", "F2 ENG"], "guidelines": ["G1 ENG"]},
  {"category": "NoExamples - PL", "system prompt": "S.", "focus": ["F"], "guidelines": ["G"]}
]`

const sampleExamples = `[
  {"category": "TestCategory - PL", "examples": ["E1 PL", "E2 PL", "E3 PL", "E4 PL"]},
  {"category": "TestCategory - ENG", "examples": ["E1 ENG", "E2 ENG"]}
]`

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := ParseCatalog([]byte(samplePrompts), []byte(sampleExamples), rand.New(rand.NewPCG(7, 7)))
	require.NoError(t, err)
	return c
}

func TestSystemPromptPolishWithExamples(t *testing.T) {
	c := newTestCatalog(t)

	prompt, err := c.SystemPrompt("TestCategory - PL", true)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(prompt, "System prompt PL.\n\n"))
	assert.True(t, strings.HasSuffix(prompt, "\n\n"+WarningPL))
	assert.Contains(t, prompt, "\n\nPrzykłady:\n")
	assert.Equal(t, 2, countAll(prompt, "F1 PL", "F2 PL", "F3 PL"), "two focus lines")
	assert.Equal(t, 1, countAll(prompt, "G1 PL", "G2 PL"), "one guideline")
	assert.Equal(t, 3, countAll(prompt, "E1 PL", "E2 PL", "E3 PL", "E4 PL"), "three examples")
}

func countAll(s string, subs ...string) int {
	n := 0
	for _, sub := range subs {
		n += strings.Count(s, sub)
	}
	return n
}

func TestSystemPromptEnglishWithoutExamples(t *testing.T) {
	c := newTestCatalog(t)

	prompt, err := c.SystemPrompt("TestCategory - ENG", false)
	require.NoError(t, err)

	assert.Equal(t, "System prompt ENG.\n\nF1 ENG\nF2 ENG\n\nG1 ENG\n\n"+WarningENG, prompt)
}

func TestSystemPromptEnglishExamplesIntro(t *testing.T) {
	c := newTestCatalog(t)

	prompt, err := c.SystemPrompt("TestCategory - ENG", true)
	require.NoError(t, err)
	assert.Contains(t, prompt, "G1 ENG\nExamples:\n")
	assert.Contains(t, prompt, "E1 ENG")
	assert.Contains(t, prompt, "E2 ENG")
}

func TestSystemPromptUnknownCategory(t *testing.T) {
	c := newTestCatalog(t)

	_, err := c.SystemPrompt("Nope", true)
	assert.EqualError(t, err, "no prompts found for category: Nope")
}

func TestSystemPromptMissingExamples(t *testing.T) {
	c := newTestCatalog(t)

	_, err := c.SystemPrompt("NoExamples - PL", true)
	assert.EqualError(t, err, "no examples found for category: NoExamples - PL")

	_, err = c.SystemPrompt("NoExamples - PL", false)
	assert.NoError(t, err)
}

func TestSystemPromptRandomCategory(t *testing.T) {
	c := newTestCatalog(t)

	prompt, err := c.SystemPrompt("", false)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(prompt, "System prompt") || strings.HasPrefix(prompt, "S."))
}

func TestDefaultCatalog(t *testing.T) {
	c, err := DefaultCatalog(rand.New(rand.NewPCG(1, 1)))
	require.NoError(t, err)

	for _, name := range c.Categories() {
		prompt, err := c.SystemPrompt(name, true)
		require.NoError(t, err, name)
		assert.NotEmpty(t, prompt)
	}
	assert.Contains(t, c.Categories(), "Bot Calming - PL")
	assert.Contains(t, c.Categories(), "Active Manipulation - PL")
}

func TestLoadCatalogFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "system_prompts.json"), []byte(samplePrompts), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "examples.json"), []byte(sampleExamples), 0o600))

	c, err := LoadCatalog(dir, nil)
	require.NoError(t, err)
	assert.Len(t, c.Categories(), 3)

	_, err = LoadCatalog(t.TempDir(), nil)
	assert.Error(t, err)
}

func TestBuildCopiesTools(t *testing.T) {
	c := newTestCatalog(t)
	tools := []mcptypes.Tool{mcptypes.NewTool("a"), mcptypes.NewTool("b")}

	p, err := c.Build("adversarial", "TestCategory - ENG", false, tools)
	require.NoError(t, err)

	tools[0].Name = "changed"
	assert.Equal(t, "a", p.Tools[0].Name)
	assert.Equal(t, "adversarial", p.Name)
	assert.Contains(t, p.SystemPrompt, "System prompt ENG.")
}
