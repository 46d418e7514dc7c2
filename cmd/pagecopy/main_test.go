package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagecopy/internal/gateway/config"
	"pagecopy/internal/types"
)

const page = `<html><body>
<nav><a href="/">Home</a></nav>
<h1>Plan dinners faster</h1>
<p>Every week starts with a plan that fits your family.</p>
<a class="btn" href="/signup">Start free</a>
</body></html>`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		detectIn, detectOut = "", ""
		generateBrief, generateTemplate, generateOut = "", "", ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDetectCommand(t *testing.T) {
	in := writeFile(t, "page.html", page)
	marked := filepath.Join(t.TempDir(), "marked.html")

	out, err := run(t, "detect", "-i", in, "-o", marked)
	require.NoError(t, err)

	var fields types.Manifest
	require.NoError(t, json.Unmarshal([]byte(out), &fields))
	ids := make([]string, 0, len(fields))
	for _, f := range fields {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"plan-dinners-faster", "every-week-starts-with-a-plan-that-fits", "start-free"}, ids)

	raw, err := os.ReadFile(marked)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `data-slot="plan-dinners-faster"`)
}

func TestDetectRequiresInput(t *testing.T) {
	_, err := run(t, "detect")
	require.Error(t, err)
}

func TestGenerateCommandWithFakeProvider(t *testing.T) {
	t.Setenv("LLM_QUALITY_PROVIDER", "fake")
	t.Setenv("LLM_FAST_PROVIDER", "fake")
	t.Setenv("BATCH_DELAY", "0")

	tmpl := writeFile(t, "page.html", page)
	brief := writeFile(t, "brief.yaml", `
productName: Mealwise
description: A weekly meal planner for busy parents.
benefits:
  - Saves an hour a day
audience:
  tone: friendly
`)
	out, err := run(t, "generate", "-b", brief, "-t", tmpl)
	require.NoError(t, err, out)

	var res types.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Slots.Len())
	assert.NotEmpty(t, res.Narrative)
	assert.NotEmpty(t, res.RunID)
}

func TestReadBrief(t *testing.T) {
	path := writeFile(t, "brief.yaml", "productName: Mealwise\naudience:\n  country: NZ\n  tone: urgent\n")
	b, err := readBrief(path)
	require.NoError(t, err)
	assert.Equal(t, "Mealwise", b.ProductName)
	assert.Equal(t, "NZ", b.Audience.Country)
	assert.Equal(t, types.ToneUrgent, b.Audience.Tone)

	_, err = readBrief(writeFile(t, "bad.yaml", "productName: [unclosed"))
	require.Error(t, err)
}

func TestApplyVerbosity(t *testing.T) {
	cfg := &config.Config{LogMode: "production"}
	applyVerbosity(cfg, true)
	assert.Equal(t, "development", cfg.LogMode)
	assert.True(t, cfg.LLM.LogPrompts)

	cfg = &config.Config{LogMode: "development"}
	applyVerbosity(cfg, false)
	assert.Equal(t, "production", cfg.LogMode)
	assert.False(t, cfg.LLM.LogPrompts)
}
