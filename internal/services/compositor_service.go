package services

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Anchor positions an overlay block relative to the canvas
type Anchor string

const (
	AnchorBottomLeft  Anchor = "bottom-left"
	AnchorBottomRight Anchor = "bottom-right"
	AnchorCenter      Anchor = "center"
)

// ParseAnchor parses an anchor name, reporting whether it is known
func ParseAnchor(s string) (Anchor, bool) {
	switch Anchor(s) {
	case AnchorBottomLeft, AnchorBottomRight, AnchorCenter:
		return Anchor(s), true
	}
	return "", false
}

// TextStyle controls overlay ink
type TextStyle struct {
	Color       color.NRGBA
	StrokeColor color.NRGBA
	StrokeWidth int
	Opacity     float64 // 0..1
}

// PositionedRun is a text run placed in block coordinates with the face that
// measures it. The compositor translates the whole block to its anchor.
type PositionedRun struct {
	Text string
	X, Y fixed.Int26_6 // baseline, relative to block origin
	Face font.Face
}

// OverlayBlock is a fully positioned group of runs with its bounding size
type OverlayBlock struct {
	Runs   []PositionedRun
	Width  int
	Height int
}

// Compositor rasterizes overlay blocks onto a copy of a source image. The
// input raster is never mutated; the result is always a new buffer.
type Compositor struct {
	insetX int
	insetY int
}

// NewCompositor creates a Compositor with the given anchor insets
func NewCompositor(insetX, insetY int) *Compositor {
	return &Compositor{insetX: insetX, insetY: insetY}
}

// Composite draws block onto a copy of src at the given anchor. When the
// style has a stroke width, a stroke pass runs before the fill pass so the
// text stays legible over variable backgrounds. If the block exceeds the
// canvas bounds the overflow is clipped silently and the second return value
// reports the overflow.
func (c *Compositor) Composite(src image.Image, block OverlayBlock, anchor Anchor, style TextStyle) (*image.NRGBA, bool) {
	dst := imaging.Clone(src)
	bounds := dst.Bounds()

	var ox, oy int
	switch anchor {
	case AnchorBottomRight:
		ox = bounds.Dx() - c.insetX - block.Width
		oy = bounds.Dy() - c.insetY - block.Height
	case AnchorCenter:
		ox = (bounds.Dx() - block.Width) / 2
		oy = (bounds.Dy() - block.Height) / 2
	default: // AnchorBottomLeft
		ox = c.insetX
		oy = bounds.Dy() - c.insetY - block.Height
	}

	overflow := ox < 0 || oy < 0 ||
		ox+block.Width > bounds.Dx() || oy+block.Height > bounds.Dy()

	fill := image.NewUniform(applyOpacity(style.Color, style.Opacity))
	stroke := image.NewUniform(applyOpacity(style.StrokeColor, style.Opacity))

	for _, run := range block.Runs {
		baseX := fixed.I(ox) + run.X
		baseY := fixed.I(oy) + run.Y

		if style.StrokeWidth > 0 {
			w := style.StrokeWidth
			for dy := -w; dy <= w; dy++ {
				for dx := -w; dx <= w; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					d := font.Drawer{
						Dst:  dst,
						Src:  stroke,
						Face: run.Face,
						Dot:  fixed.Point26_6{X: baseX + fixed.I(dx), Y: baseY + fixed.I(dy)},
					}
					d.DrawString(run.Text)
				}
			}
		}

		d := font.Drawer{
			Dst:  dst,
			Src:  fill,
			Face: run.Face,
			Dot:  fixed.Point26_6{X: baseX, Y: baseY},
		}
		d.DrawString(run.Text)
	}

	return dst, overflow
}

func applyOpacity(c color.NRGBA, opacity float64) color.NRGBA {
	if opacity <= 0 {
		c.A = 0
		return c
	}
	if opacity >= 1 {
		return c
	}
	c.A = uint8(float64(c.A)*opacity + 0.5)
	return c
}
