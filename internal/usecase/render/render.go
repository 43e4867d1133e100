package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"

	"batchmark/internal/domain"

	"github.com/disintegration/imaging"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// Renderer composites watermark tiles onto images. It is safe for concurrent
// use: the parsed font is read-only and every call works on its own surfaces.
type Renderer struct {
	font *truetype.Font
}

func NewRenderer() (*Renderer, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded font: %w", err)
	}
	return &Renderer{font: f}, nil
}

// Apply draws one watermark tile per placement onto a copy of src and returns
// the composed image. The tile is rasterized once per layout (size and
// rotation are uniform across placements) and composited at each center.
func (r *Renderer) Apply(src image.Image, l domain.Layout, cfg domain.WatermarkConfig) (*image.NRGBA, error) {
	if len(l.Placements) == 0 {
		return nil, fmt.Errorf("%w: layout has no placements", domain.ErrInvalidConfig)
	}

	tile, err := r.renderTile(cfg, l.FontSize)
	if err != nil {
		return nil, err
	}
	if rot := l.Placements[0].Rotation; rot != 0 {
		// Rotation expands the surface to the rotated bounding box, so tile
		// corners are never cropped.
		tile = imaging.Rotate(tile, rot, color.NRGBA{})
	}

	bounds := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)

	tw := tile.Bounds().Dx()
	th := tile.Bounds().Dy()
	for _, p := range l.Placements {
		x0 := int(math.Round(p.CenterX - float64(tw)/2))
		y0 := int(math.Round(p.CenterY - float64(th)/2))
		draw.Draw(dst, image.Rect(x0, y0, x0+tw, y0+th), tile, tile.Bounds().Min, draw.Over)
	}
	return dst, nil
}

// Preview downscales src so its longer side fits maxSize, scales the layout
// by the same factor, and applies it. The layout is never recomputed at the
// preview resolution; that is what keeps preview and export geometry
// identical up to scale.
func (r *Renderer) Preview(src image.Image, l domain.Layout, cfg domain.WatermarkConfig, maxSize int) (*image.NRGBA, float64, error) {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if maxSize <= 0 {
		maxSize = domain.DefaultPreviewSize
	}

	scale := 1.0
	if longest := max(w, h); longest > maxSize {
		scale = float64(maxSize) / float64(longest)
	}

	scaledW := int(math.Round(float64(w) * scale))
	scaledH := int(math.Round(float64(h) * scale))
	scaled := resizeImage(src, scaledW, scaledH)

	out, err := r.Apply(scaled, ScaleLayout(l, scale), cfg)
	if err != nil {
		return nil, 0, err
	}
	return out, scale, nil
}

// ScaleLayout maps a full-resolution layout onto a uniformly scaled image.
// Centers scale exactly; the font size scales and is floored at the minimum
// so previews of very large images stay legible.
func ScaleLayout(l domain.Layout, scale float64) domain.Layout {
	fontSize := int(math.Round(float64(l.FontSize) * scale))
	if fontSize < domain.MinFontSize {
		fontSize = domain.MinFontSize
	}

	scaled := domain.Layout{
		Rows:       l.Rows,
		Cols:       l.Cols,
		Margin:     l.Margin * scale,
		CellWidth:  l.CellWidth * scale,
		CellHeight: l.CellHeight * scale,
		FontSize:   fontSize,
		Placements: make([]domain.Placement, len(l.Placements)),
	}
	for i, p := range l.Placements {
		scaled.Placements[i] = domain.Placement{
			CenterX:  p.CenterX * scale,
			CenterY:  p.CenterY * scale,
			FontSize: fontSize,
			Rotation: p.Rotation,
		}
	}
	return scaled
}

// renderTile rasterizes the watermark text into a transparent surface sized
// to the measured text bounds plus padding. The padding absorbs anti-aliased
// edges that would otherwise clip on rotation.
func (r *Renderer) renderTile(cfg domain.WatermarkConfig, fontSize int) (*image.NRGBA, error) {
	lines := splitLines(cfg.Text)

	face := truetype.NewFace(r.font, &truetype.Options{
		Size:    float64(fontSize),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	defer face.Close()

	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	lineHeight := metrics.Height.Ceil()

	widths := make([]int, len(lines))
	maxWidth := 1
	for i, line := range lines {
		widths[i] = font.MeasureString(face, line).Ceil()
		if widths[i] > maxWidth {
			maxWidth = widths[i]
		}
	}

	pad := int(math.Round(float64(fontSize) * domain.TilePaddingRatio))
	if pad < 2 {
		pad = 2
	}

	surface := image.NewNRGBA(image.Rect(0, 0, maxWidth+2*pad, lineHeight*len(lines)+2*pad))

	alpha := uint8(math.Round(cfg.Opacity * 255))
	fill := color.NRGBA{R: cfg.Color.R, G: cfg.Color.G, B: cfg.Color.B, A: alpha}

	c := freetype.NewContext()
	c.SetDPI(72)
	c.SetFont(r.font)
	c.SetFontSize(float64(fontSize))
	c.SetClip(surface.Bounds())
	c.SetDst(surface)
	c.SetSrc(image.NewUniform(fill))
	c.SetHinting(font.HintingFull)

	for i, line := range lines {
		x := pad + (maxWidth-widths[i])/2
		y := pad + ascent + i*lineHeight
		if _, err := c.DrawString(line, freetype.Pt(x, y)); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrTextRender, err)
		}
	}
	return surface, nil
}

// Decode reads an image in any of the supported formats (JPEG, PNG, GIF,
// BMP) and reports its format name.
func Decode(reader io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(reader)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrUnsupportedImageFormat, err)
	}
	return img, format, nil
}

// Encode writes img in the configured output format. JPEG output is
// flattened over white since the format carries no alpha channel.
func Encode(w io.Writer, img image.Image, out domain.OutputConfig) error {
	switch out.Format {
	case domain.FormatJPEG:
		flat := flattenToWhite(img)
		quality := out.JPEGQuality
		if quality == 0 {
			quality = domain.DefaultJPEGQuality
		}
		if err := encodeJPEG(w, flat, quality); err != nil {
			return fmt.Errorf("failed to encode jpeg: %w", err)
		}
		return nil
	case domain.FormatPNG:
		if err := encodePNG(w, img); err != nil {
			return fmt.Errorf("failed to encode png: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: output format %q", domain.ErrInvalidConfig, out.Format)
	}
}

func flattenToWhite(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	flat := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(flat, flat.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), img, bounds.Min, draw.Over)
	return flat
}
