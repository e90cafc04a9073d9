package services

import (
	"os"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/inktime/server/internal/models"
	"github.com/inktime/server/internal/observability"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// Script is a Unicode script category relevant to overlay text
type Script string

const (
	ScriptLatin    Script = "latin"
	ScriptHan      Script = "han"
	ScriptHiragana Script = "hiragana"
	ScriptKatakana Script = "katakana"
	ScriptHangul   Script = "hangul"
	ScriptCyrillic Script = "cyrillic"
)

// scriptExemplars are the runes used to probe whether a face covers a script
var scriptExemplars = map[Script]rune{
	ScriptLatin:    'A',
	ScriptHan:      '\u6c38', // 永
	ScriptHiragana: '\u3042', // あ
	ScriptKatakana: '\u30a2', // ア
	ScriptHangul:   '\ud55c', // 한
	ScriptCyrillic: '\u0414', // Д
}

func scriptOf(r rune) (Script, bool) {
	switch {
	case unicode.Is(unicode.Latin, r):
		return ScriptLatin, true
	case unicode.Is(unicode.Han, r):
		return ScriptHan, true
	case unicode.Is(unicode.Hiragana, r):
		return ScriptHiragana, true
	case unicode.Is(unicode.Katakana, r):
		return ScriptKatakana, true
	case unicode.Is(unicode.Hangul, r):
		return ScriptHangul, true
	case unicode.Is(unicode.Cyrillic, r):
		return ScriptCyrillic, true
	}
	return "", false
}

// DetectScripts returns the sorted, de-duplicated set of scripts used by text.
// Digits, punctuation and whitespace carry no script of their own.
func DetectScripts(text string) []Script {
	seen := make(map[Script]bool)
	for _, r := range text {
		if s, ok := scriptOf(r); ok {
			seen[s] = true
		}
	}
	scripts := make([]Script, 0, len(seen))
	for s := range seen {
		scripts = append(scripts, s)
	}
	sort.Slice(scripts, func(i, j int) bool { return scripts[i] < scripts[j] })
	return scripts
}

// FontSource describes where a resolved font came from
type FontSource string

const (
	SourceExplicit   FontSource = "explicit"
	SourceSystemScan FontSource = "system-scan"
	SourceBuiltin    FontSource = "builtin"
)

// FontCandidate is one entry in the resolution order. Lower priority wins.
type FontCandidate struct {
	Path     string
	Priority int
	Source   FontSource
	Coverage []Script
}

// FontProvider supplies the candidate font list. The engine depends only on
// this abstraction; the surrounding application decides how fonts are found.
type FontProvider interface {
	Candidates() []FontCandidate
}

// SystemFontProvider lists well-known system font locations. CJK calligraphy
// (kai) faces rank above generic CJK sans faces, which rank above Latin-only
// faces. Entries not present on disk are skipped during resolution.
type SystemFontProvider struct{}

// NewSystemFontProvider creates a SystemFontProvider
func NewSystemFontProvider() *SystemFontProvider {
	return &SystemFontProvider{}
}

// Candidates returns the static priority-ordered candidate list
func (p *SystemFontProvider) Candidates() []FontCandidate {
	paths := []string{
		// Calligraphy / kai tier
		"/usr/share/fonts/truetype/arphic/ukai.ttc",
		"/usr/share/fonts/truetype/arphic/gkai00mp.ttf",
		"/Library/Fonts/STKaiti.ttc",
		`C:\Windows\Fonts\simkai.ttf`,
		// Generic CJK sans tier
		"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
		"/usr/share/fonts/truetype/noto/NotoSansCJK-Regular.ttc",
		"/usr/share/fonts/truetype/wqy/wqy-zenhei.ttc",
		"/usr/share/fonts/truetype/wqy/wqy-microhei.ttc",
		"/System/Library/Fonts/PingFang.ttc",
		`C:\Windows\Fonts\msyh.ttc`,
		`C:\Windows\Fonts\simhei.ttf`,
		// Latin-only tier
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		"/System/Library/Fonts/Helvetica.ttc",
		`C:\Windows\Fonts\arial.ttf`,
	}

	candidates := make([]FontCandidate, 0, len(paths))
	for i, path := range paths {
		candidates = append(candidates, FontCandidate{
			Path:     path,
			Priority: i,
			Source:   SourceSystemScan,
		})
	}
	return candidates
}

// ResolvedFont is a parsed, usable font together with its candidate metadata
type ResolvedFont struct {
	Candidate FontCandidate
	Font      *opentype.Font
}

// Face creates a font.Face at the given pixel size
func (f *ResolvedFont) Face(sizePx float64) (font.Face, error) {
	return opentype.NewFace(f.Font, &opentype.FaceOptions{
		Size:    sizePx,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// FontResolver picks the first candidate face whose glyph coverage satisfies
// the scripts of the required text, falling back to the embedded builtin face.
// Results are cached per process, keyed by (hint, required script set).
type FontResolver struct {
	provider FontProvider

	mu    sync.RWMutex
	cache map[string]*ResolvedFont
}

// NewFontResolver creates a FontResolver backed by the given provider
func NewFontResolver(provider FontProvider) *FontResolver {
	return &FontResolver{
		provider: provider,
		cache:    make(map[string]*ResolvedFont),
	}
}

// Resolve returns a font able to render requiredText. A non-empty hint is
// tried first; if its file is missing, unparsable, or lacks coverage, the
// provider candidates are scanned in priority order. Resolution never fails
// for missing fonts - it degrades to the builtin face, where uncovered
// codepoints render as tofu. The only error is ErrFontUnavailable, returned
// when the builtin face itself cannot be parsed.
func (r *FontResolver) Resolve(hint string, requiredText string) (*ResolvedFont, error) {
	scripts := DetectScripts(requiredText)
	key := cacheKey(hint, scripts)

	r.mu.RLock()
	cached, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	resolved, err := r.resolve(hint, scripts)
	if err != nil {
		return nil, err
	}

	// Racing writers store equal values, so last write wins is fine.
	r.mu.Lock()
	r.cache[key] = resolved
	r.mu.Unlock()

	return resolved, nil
}

func (r *FontResolver) resolve(hint string, scripts []Script) (*ResolvedFont, error) {
	if hint != "" {
		if f := loadCoveringFont(hint, scripts); f != nil {
			return &ResolvedFont{
				Candidate: FontCandidate{Path: hint, Source: SourceExplicit, Coverage: scripts},
				Font:      f,
			}, nil
		}
		observability.WithField("font_path", hint).Warnf("Font hint unusable for scripts %v, scanning candidates", scripts)
	}

	for _, cand := range orderCandidates(r.provider.Candidates()) {
		if _, err := os.Stat(cand.Path); err != nil {
			continue
		}
		if f := loadCoveringFont(cand.Path, scripts); f != nil {
			cand.Coverage = scripts
			return &ResolvedFont{Candidate: cand, Font: f}, nil
		}
	}

	// Builtin fallback: embedded Go Regular. Codepoints it cannot cover
	// render as tofu rather than failing the request.
	builtin, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, models.ErrFontUnavailable
	}
	if len(scripts) > 0 {
		observability.Warnf("No candidate font covers scripts %v, using builtin face", scripts)
	}
	return &ResolvedFont{
		Candidate: FontCandidate{Path: "builtin:goregular", Source: SourceBuiltin, Coverage: fontCoverage(builtin)},
		Font:      builtin,
	}, nil
}

// orderCandidates sorts by priority and drops duplicate paths
func orderCandidates(candidates []FontCandidate) []FontCandidate {
	sorted := make([]FontCandidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })

	seen := make(map[string]bool, len(sorted))
	out := sorted[:0]
	for _, c := range sorted {
		if seen[c.Path] {
			continue
		}
		seen[c.Path] = true
		out = append(out, c)
	}
	return out
}

// loadCoveringFont parses the font file at path and returns the first face in
// it that covers every required script, or nil if the file is unreadable,
// unparsable, or lacks coverage. Collection files (.ttc/.otc) are searched
// face by face.
func loadCoveringFont(path string, scripts []Script) *opentype.Font {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	ext := strings.ToLower(path)
	if strings.HasSuffix(ext, ".ttc") || strings.HasSuffix(ext, ".otc") {
		coll, err := opentype.ParseCollection(data)
		if err != nil {
			return nil
		}
		for i := 0; i < coll.NumFonts(); i++ {
			f, err := coll.Font(i)
			if err != nil {
				continue
			}
			if fontCovers(f, scripts) {
				return f
			}
		}
		return nil
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil
	}
	if !fontCovers(f, scripts) {
		return nil
	}
	return f
}

// fontCovers probes the face's glyph table with one exemplar rune per script
func fontCovers(f *opentype.Font, scripts []Script) bool {
	var buf sfnt.Buffer
	for _, s := range scripts {
		idx, err := f.GlyphIndex(&buf, scriptExemplars[s])
		if err != nil || idx == 0 {
			return false
		}
	}
	return true
}

// fontCoverage reports which known scripts a face covers
func fontCoverage(f *opentype.Font) []Script {
	var buf sfnt.Buffer
	var covered []Script
	for s, r := range scriptExemplars {
		if idx, err := f.GlyphIndex(&buf, r); err == nil && idx != 0 {
			covered = append(covered, s)
		}
	}
	sort.Slice(covered, func(i, j int) bool { return covered[i] < covered[j] })
	return covered
}

func cacheKey(hint string, scripts []Script) string {
	parts := make([]string, 0, len(scripts)+1)
	parts = append(parts, hint)
	for _, s := range scripts {
		parts = append(parts, string(s))
	}
	return strings.Join(parts, "|")
}
