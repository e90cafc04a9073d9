package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"
)

// fakeFontProvider returns a fixed candidate list
type fakeFontProvider struct {
	candidates []FontCandidate
}

func (p *fakeFontProvider) Candidates() []FontCandidate {
	return p.candidates
}

func writeTestFont(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test-regular.ttf")
	require.NoError(t, os.WriteFile(path, goregular.TTF, 0644))
	return path
}

func TestDetectScripts(t *testing.T) {
	t.Run("latin only", func(t *testing.T) {
		assert.Equal(t, []Script{ScriptLatin}, DetectScripts("Sunset at the pier"))
	})

	t.Run("mixed latin and han", func(t *testing.T) {
		scripts := DetectScripts("Kyoto 桜満開")
		assert.Equal(t, []Script{ScriptHan, ScriptLatin}, scripts)
	})

	t.Run("kana and hangul", func(t *testing.T) {
		scripts := DetectScripts("あア한")
		assert.Equal(t, []Script{ScriptHangul, ScriptHiragana, ScriptKatakana}, scripts)
	})

	t.Run("digits and punctuation carry no script", func(t *testing.T) {
		assert.Empty(t, DetectScripts("2024.7.3, 35.01000"))
	})

	t.Run("is deterministic", func(t *testing.T) {
		a := DetectScripts("mix 永 Д text")
		b := DetectScripts("mix 永 Д text")
		assert.Equal(t, a, b)
	})
}

func TestFontResolver_Resolve(t *testing.T) {
	t.Run("uses explicit hint when it covers the text", func(t *testing.T) {
		hint := writeTestFont(t)
		resolver := NewFontResolver(&fakeFontProvider{})

		resolved, err := resolver.Resolve(hint, "latin caption")
		require.NoError(t, err)

		assert.Equal(t, SourceExplicit, resolved.Candidate.Source)
		assert.Equal(t, hint, resolved.Candidate.Path)
	})

	t.Run("falls back past a hint that lacks coverage", func(t *testing.T) {
		hint := writeTestFont(t) // latin-only face
		resolver := NewFontResolver(&fakeFontProvider{})

		resolved, err := resolver.Resolve(hint, "今日の写真")
		require.NoError(t, err)

		// No candidate covers Han/kana, so the builtin face wins
		assert.Equal(t, SourceBuiltin, resolved.Candidate.Source)
	})

	t.Run("scans candidates in priority order", func(t *testing.T) {
		first := writeTestFont(t)
		second := writeTestFont(t)
		resolver := NewFontResolver(&fakeFontProvider{candidates: []FontCandidate{
			{Path: second, Priority: 2, Source: SourceSystemScan},
			{Path: first, Priority: 1, Source: SourceSystemScan},
		}})

		resolved, err := resolver.Resolve("", "plain text")
		require.NoError(t, err)

		assert.Equal(t, first, resolved.Candidate.Path)
	})

	t.Run("skips missing candidate files", func(t *testing.T) {
		present := writeTestFont(t)
		resolver := NewFontResolver(&fakeFontProvider{candidates: []FontCandidate{
			{Path: "/nonexistent/font.ttf", Priority: 0, Source: SourceSystemScan},
			{Path: present, Priority: 1, Source: SourceSystemScan},
		}})

		resolved, err := resolver.Resolve("", "plain text")
		require.NoError(t, err)

		assert.Equal(t, present, resolved.Candidate.Path)
	})

	t.Run("resolves to builtin with no candidates at all", func(t *testing.T) {
		resolver := NewFontResolver(&fakeFontProvider{})

		resolved, err := resolver.Resolve("", "caption")
		require.NoError(t, err)

		assert.Equal(t, SourceBuiltin, resolved.Candidate.Source)
		assert.NotNil(t, resolved.Font)
	})

	t.Run("caches by hint and script set", func(t *testing.T) {
		resolver := NewFontResolver(&fakeFontProvider{})

		a, err := resolver.Resolve("", "first latin text")
		require.NoError(t, err)
		b, err := resolver.Resolve("", "other latin words")
		require.NoError(t, err)

		// Same script set resolves to the same cached entry
		assert.Same(t, a, b)
	})

	t.Run("resolved font produces usable faces", func(t *testing.T) {
		resolver := NewFontResolver(&fakeFontProvider{})

		resolved, err := resolver.Resolve("", "caption")
		require.NoError(t, err)

		face, err := resolved.Face(48)
		require.NoError(t, err)
		defer face.Close()

		assert.Greater(t, face.Metrics().Height.Ceil(), 0)
	})
}
