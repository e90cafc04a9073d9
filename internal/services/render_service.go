package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/inktime/server/internal/models"
	"github.com/inktime/server/internal/observability"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// RenderConfig controls canvas geometry and overlay typography
type RenderConfig struct {
	LandscapeWidth   int
	LandscapeHeight  int
	PortraitWidth    int
	PortraitHeight   int
	TextAreaHeight   int
	InsetX           int
	InsetY           int
	CaptionSizePx    float64
	DateSizePx       float64
	CaptionMaxLines  int
	MaxWidthFraction float64
	FontHint         string
	Style            TextStyle
}

// DefaultRenderConfig returns the e-ink frame defaults: landscape canvas
// 2048x1536 (portrait swapped), a 180 px bottom text band, 48 px caption and
// 36 px date line, black ink
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		LandscapeWidth:   2048,
		LandscapeHeight:  1536,
		PortraitWidth:    1536,
		PortraitHeight:   2048,
		TextAreaHeight:   180,
		InsetX:           48,
		InsetY:           16,
		CaptionSizePx:    48,
		DateSizePx:       36,
		CaptionMaxLines:  2,
		MaxWidthFraction: 1.0,
		Style: TextStyle{
			Color:       color.NRGBA{A: 255}, // black
			StrokeColor: color.NRGBA{R: 255, G: 255, B: 255, A: 255},
			StrokeWidth: 0,
			Opacity:     1.0,
		},
	}
}

// RenderOptions are per-request overrides. Non-empty text fields replace the
// photo's own metadata; a nil style keeps the configured one.
type RenderOptions struct {
	CaptionText  string
	DateText     string
	LocationText string
	FontHint     string
	Anchor       Anchor
	Style        *TextStyle
}

// RenderService is the one rendering core. Both the featured-image path and
// the simulation path call it, so identical inputs always produce identical
// bytes regardless of which route asked.
type RenderService struct {
	resolver   *FontResolver
	layout     *LayoutService
	compositor *Compositor
	exif       *EXIFService
	cfg        RenderConfig
	libraryDir string
	metrics    *observability.RenderMetrics
}

// NewRenderService creates a RenderService reading photos under libraryDir
func NewRenderService(
	resolver *FontResolver,
	layout *LayoutService,
	compositor *Compositor,
	exifService *EXIFService,
	cfg RenderConfig,
	libraryDir string,
) *RenderService {
	return &RenderService{
		resolver:   resolver,
		layout:     layout,
		compositor: compositor,
		exif:       exifService,
		cfg:        cfg,
		libraryDir: libraryDir,
	}
}

// SetMetrics attaches render metrics instruments
func (s *RenderService) SetMetrics(m *observability.RenderMetrics) {
	s.metrics = m
}

// RenderPhoto renders the photo with its overlay onto a fresh canvas.
// The source file is only read, never written. Returns the rendered raster
// plus non-fatal warnings (truncation, clipped overflow).
func (s *RenderService) RenderPhoto(ctx context.Context, photo *models.Photo, opts RenderOptions) (*image.NRGBA, []string, error) {
	ctx, span := observability.StartServiceSpan(ctx, "render", "RenderPhoto")
	defer span.End()
	span.SetAttributes(observability.PhotoID(photo.ID))
	start := time.Now()

	img, err := s.loadSource(photo)
	if err != nil {
		observability.RecordError(span, err)
		s.recordRender(ctx, start, false)
		return nil, nil, err
	}

	caption := opts.CaptionText
	if caption == "" {
		caption = photo.Caption
	}
	dateText := opts.DateText
	if dateText == "" {
		dateText = FormatDateDisplay(photo.CapturedAt)
	}
	locText := opts.LocationText
	if locText == "" {
		locText = FormatLocation(photo.Latitude, photo.Longitude, photo.City)
	}

	canvas := s.buildCanvas(img)
	cw := canvas.Bounds().Dx()

	hint := opts.FontHint
	if hint == "" {
		hint = s.cfg.FontHint
	}
	resolved, err := s.resolver.Resolve(hint, caption+dateText+locText)
	if err != nil {
		observability.RecordError(span, err)
		s.recordRender(ctx, start, false)
		return nil, nil, err
	}
	span.SetAttributes(observability.FontPath(resolved.Candidate.Path))
	if resolved.Candidate.Source == SourceBuiltin && s.metrics != nil {
		s.metrics.RecordFontFallback(ctx)
	}

	captionFace, err := resolved.Face(s.cfg.CaptionSizePx)
	if err != nil {
		return nil, nil, models.ErrFontUnavailable
	}
	dateFace, err := resolved.Face(s.cfg.DateSizePx)
	if err != nil {
		return nil, nil, models.ErrFontUnavailable
	}

	maxWidth := int(float64(cw-2*s.cfg.InsetX) * s.cfg.MaxWidthFraction)

	var warnings []string
	captionLayout := s.layout.Layout(caption, captionFace, maxWidth)
	if captionLayout.Truncate(s.cfg.CaptionMaxLines) {
		warnings = append(warnings, fmt.Sprintf("caption truncated to %d lines", s.cfg.CaptionMaxLines))
	}

	block := buildOverlayBlock(captionLayout, captionFace, dateText, locText, dateFace, maxWidth)

	anchor := opts.Anchor
	if anchor == "" {
		anchor = AnchorBottomLeft
	}
	style := s.cfg.Style
	if opts.Style != nil {
		style = *opts.Style
	}

	rendered, overflow := s.compositor.Composite(canvas, block, anchor, style)
	if overflow {
		warnings = append(warnings, "overlay exceeds canvas bounds, clipped")
		if s.metrics != nil {
			s.metrics.RecordLayoutOverflow(ctx)
		}
	}

	span.SetAttributes(observability.Duration(time.Since(start)))
	observability.SetSuccess(span)
	s.recordRender(ctx, start, true)
	return rendered, warnings, nil
}

// RenderPNG renders the photo and encodes the result as PNG
func (s *RenderService) RenderPNG(ctx context.Context, photo *models.Photo, opts RenderOptions) ([]byte, []string, error) {
	img, warnings, err := s.RenderPhoto(ctx, photo, opts)
	if err != nil {
		return nil, warnings, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, warnings, fmt.Errorf("failed to encode render: %w", err)
	}
	return buf.Bytes(), warnings, nil
}

// loadSource reads and decodes the photo file, correcting EXIF orientation
func (s *RenderService) loadSource(photo *models.Photo) (image.Image, error) {
	absPath := filepath.Join(s.libraryDir, filepath.FromSlash(photo.Path))
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read photo %s: %w", photo.ID, err)
	}

	img, err := DecodeImage(data, absPath)
	if err != nil {
		return nil, err
	}

	exifData, _ := s.exif.ExtractFromBytes(data)
	return applyOrientation(img, exifData.Orientation), nil
}

// buildCanvas cover-crops the photo into the area above the bottom text band
// on an orientation-matched white canvas
func (s *RenderService) buildCanvas(img image.Image) image.Image {
	b := img.Bounds()
	cw, ch := s.cfg.LandscapeWidth, s.cfg.LandscapeHeight
	if b.Dy() > b.Dx() {
		cw, ch = s.cfg.PortraitWidth, s.cfg.PortraitHeight
	}

	canvas := imaging.New(cw, ch, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	areaHeight := ch - s.cfg.TextAreaHeight
	if areaHeight <= 0 {
		areaHeight = ch
	}

	fitted := imaging.Fill(img, cw, areaHeight, imaging.Center, imaging.Lanczos)
	return imaging.Paste(canvas, fitted, image.Pt(0, 0))
}

// buildOverlayBlock stacks the caption above the date line; the location
// right-aligns on the date baseline
func buildOverlayBlock(captionLayout *TextLayout, captionFace font.Face, dateText, locText string, dateFace font.Face, blockWidth int) OverlayBlock {
	block := OverlayBlock{Width: blockWidth}

	captionFaceGap := 12 // px between caption block and date line

	for _, run := range captionLayout.Runs {
		block.Runs = append(block.Runs, PositionedRun{
			Text: run.Text,
			X:    run.X,
			Y:    run.Y,
			Face: captionFace,
		})
	}
	block.Height = captionLayout.Height

	if dateText == "" && locText == "" {
		if block.Width < captionLayout.Width {
			block.Width = captionLayout.Width
		}
		return block
	}

	metrics := dateFace.Metrics()
	baseY := fixed.I(block.Height)
	if block.Height > 0 {
		baseY += fixed.I(captionFaceGap)
	}
	baseline := baseY + metrics.Ascent

	if dateText != "" {
		block.Runs = append(block.Runs, PositionedRun{
			Text: dateText,
			X:    0,
			Y:    baseline,
			Face: dateFace,
		})
	}
	if locText != "" {
		locWidth := font.MeasureString(dateFace, locText)
		x := fixed.I(blockWidth) - locWidth
		if x < 0 {
			x = 0
		}
		block.Runs = append(block.Runs, PositionedRun{
			Text: locText,
			X:    x,
			Y:    baseline,
			Face: dateFace,
		})
	}

	block.Height = (baseY + metrics.Height).Ceil()
	return block
}

// FormatDateDisplay renders a capture time as "YYYY.M.D"
func FormatDateDisplay(t *time.Time) string {
	if t == nil {
		return ""
	}
	return fmt.Sprintf("%d.%d.%d", t.Year(), int(t.Month()), t.Day())
}

// FormatLocation prefers the city name, falls back to raw coordinates with
// five decimals, and stays empty rather than inventing an unknown place
func FormatLocation(lat, lon *float64, city string) string {
	if trimmed := strings.TrimSpace(city); trimmed != "" {
		return trimmed
	}
	if lat == nil || lon == nil {
		return ""
	}
	return fmt.Sprintf("%.5f, %.5f", *lat, *lon)
}

func (s *RenderService) recordRender(ctx context.Context, start time.Time, success bool) {
	if s.metrics != nil {
		s.metrics.RecordRender(ctx, time.Since(start), success)
	}
}
