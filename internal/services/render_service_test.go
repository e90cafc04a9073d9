package services

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inktime/server/internal/models"
)

// testRenderConfig keeps the canvas small so tests stay fast
func testRenderConfig() RenderConfig {
	cfg := DefaultRenderConfig()
	cfg.LandscapeWidth = 256
	cfg.LandscapeHeight = 192
	cfg.PortraitWidth = 192
	cfg.PortraitHeight = 256
	cfg.TextAreaHeight = 48
	cfg.InsetX = 8
	cfg.InsetY = 4
	cfg.CaptionSizePx = 14
	cfg.DateSizePx = 10
	return cfg
}

func newTestRenderService(t *testing.T, libraryDir string) *RenderService {
	t.Helper()
	return NewRenderService(
		NewFontResolver(&fakeFontProvider{}),
		NewLayoutService(),
		NewCompositor(8, 4),
		NewEXIFService(),
		testRenderConfig(),
		libraryDir,
	)
}

func writeTestPhoto(t *testing.T, dir, name string, w, h int) *models.Photo {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 90, G: 140, B: 200, A: 255})
	require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0755))
	require.NoError(t, imaging.Save(img, filepath.Join(dir, name)))

	photo, err := models.NewPhoto(name, nil)
	require.NoError(t, err)
	return photo
}

func TestRenderService_RenderPhoto(t *testing.T) {
	ctx := context.Background()

	t.Run("landscape source fills the landscape canvas", func(t *testing.T) {
		dir := t.TempDir()
		svc := newTestRenderService(t, dir)
		photo := writeTestPhoto(t, dir, "wide.jpg", 640, 480)

		img, _, err := svc.RenderPhoto(ctx, photo, RenderOptions{CaptionText: "wide"})
		require.NoError(t, err)

		assert.Equal(t, 256, img.Bounds().Dx())
		assert.Equal(t, 192, img.Bounds().Dy())
	})

	t.Run("portrait source swaps the canvas orientation", func(t *testing.T) {
		dir := t.TempDir()
		svc := newTestRenderService(t, dir)
		photo := writeTestPhoto(t, dir, "tall.jpg", 480, 640)

		img, _, err := svc.RenderPhoto(ctx, photo, RenderOptions{CaptionText: "tall"})
		require.NoError(t, err)

		assert.Equal(t, 192, img.Bounds().Dx())
		assert.Equal(t, 256, img.Bounds().Dy())
	})

	t.Run("missing file returns an error", func(t *testing.T) {
		dir := t.TempDir()
		svc := newTestRenderService(t, dir)
		photo, err := models.NewPhoto("ghost.jpg", nil)
		require.NoError(t, err)

		_, _, err = svc.RenderPhoto(ctx, photo, RenderOptions{})
		assert.Error(t, err)
	})

	t.Run("caption override changes the output", func(t *testing.T) {
		dir := t.TempDir()
		svc := newTestRenderService(t, dir)
		photo := writeTestPhoto(t, dir, "p.jpg", 640, 480)

		plain, _, err := svc.RenderPhoto(ctx, photo, RenderOptions{})
		require.NoError(t, err)
		captioned, _, err := svc.RenderPhoto(ctx, photo, RenderOptions{CaptionText: "hello"})
		require.NoError(t, err)

		assert.NotEqual(t, plain.Pix, captioned.Pix)
	})

	t.Run("over-long caption is truncated with a warning", func(t *testing.T) {
		dir := t.TempDir()
		svc := newTestRenderService(t, dir)
		photo := writeTestPhoto(t, dir, "p.jpg", 640, 480)

		_, warnings, err := svc.RenderPhoto(ctx, photo, RenderOptions{
			CaptionText: "one\ntwo\nthree\nfour",
		})
		require.NoError(t, err)

		assert.NotEmpty(t, warnings)
	})
}

func TestRenderService_Determinism(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	photo := writeTestPhoto(t, dir, "2024/photo.jpg", 640, 480)
	taken := time.Date(2024, 7, 3, 15, 0, 0, 0, time.UTC)
	photo.CapturedAt = &taken
	photo.Caption = "summer afternoon"

	t.Run("repeat renders are byte-identical", func(t *testing.T) {
		svc := newTestRenderService(t, dir)

		a, _, err := svc.RenderPNG(ctx, photo, RenderOptions{})
		require.NoError(t, err)
		b, _, err := svc.RenderPNG(ctx, photo, RenderOptions{})
		require.NoError(t, err)

		assert.Equal(t, a, b)
	})

	t.Run("independent service instances agree byte for byte", func(t *testing.T) {
		// The simulation path builds its own service instance; its output
		// must match the live path exactly for identical inputs
		a, _, err := newTestRenderService(t, dir).RenderPNG(ctx, photo, RenderOptions{})
		require.NoError(t, err)
		b, _, err := newTestRenderService(t, dir).RenderPNG(ctx, photo, RenderOptions{})
		require.NoError(t, err)

		assert.Equal(t, a, b)
	})

	t.Run("explicit overrides equal to metadata give identical bytes", func(t *testing.T) {
		svc := newTestRenderService(t, dir)

		implicit, _, err := svc.RenderPNG(ctx, photo, RenderOptions{})
		require.NoError(t, err)
		explicit, _, err := svc.RenderPNG(ctx, photo, RenderOptions{
			CaptionText: photo.Caption,
			DateText:    FormatDateDisplay(photo.CapturedAt),
		})
		require.NoError(t, err)

		assert.Equal(t, implicit, explicit)
	})
}

func TestFormatDateDisplay(t *testing.T) {
	t.Run("formats without zero padding", func(t *testing.T) {
		d := time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, "2024.7.3", FormatDateDisplay(&d))

		d2 := time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, "2024.12.25", FormatDateDisplay(&d2))
	})

	t.Run("empty for unknown date", func(t *testing.T) {
		assert.Equal(t, "", FormatDateDisplay(nil))
	})
}

func TestFormatLocation(t *testing.T) {
	lat := 35.01234
	lon := 135.76543

	t.Run("prefers the city name", func(t *testing.T) {
		assert.Equal(t, "Kyoto", FormatLocation(&lat, &lon, "Kyoto"))
	})

	t.Run("falls back to coordinates with five decimals", func(t *testing.T) {
		assert.Equal(t, "35.01234, 135.76543", FormatLocation(&lat, &lon, ""))
	})

	t.Run("empty without city or coordinates", func(t *testing.T) {
		assert.Equal(t, "", FormatLocation(nil, nil, ""))
		assert.Equal(t, "", FormatLocation(&lat, nil, "  "))
	})
}
