package layout

import (
	"fmt"
	"math"

	"batchmark/internal/domain"
)

// Compute derives the tile geometry for one image: effective font size, grid
// shape, and the center of every tile. It is pure and deterministic; the same
// inputs always produce the same layout.
func Compute(imageWidth, imageHeight int, cfg domain.WatermarkConfig) (domain.Layout, error) {
	if imageWidth <= 0 || imageHeight <= 0 {
		return domain.Layout{}, fmt.Errorf("%w: %dx%d", domain.ErrInvalidImageDimensions, imageWidth, imageHeight)
	}
	if err := domain.ValidateWatermarkConfig(cfg); err != nil {
		return domain.Layout{}, err
	}

	w := float64(imageWidth)
	h := float64(imageHeight)
	minSide := math.Min(w, h)

	fontSize := effectiveFontSize(minSide, cfg)
	rows, cols := gridShape(cfg.Count, imageWidth, imageHeight)

	margin := domain.MarginRatio * minSide
	cellW := (w - 2*margin) / float64(cols)
	cellH := (h - 2*margin) / float64(rows)

	placements := make([]domain.Placement, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		r := i / cols
		c := i % cols
		placements = append(placements, domain.Placement{
			CenterX:  margin + (float64(c)+0.5)*cellW,
			CenterY:  margin + (float64(r)+0.5)*cellH,
			FontSize: fontSize,
			Rotation: cfg.RotationDegrees,
		})
	}

	return domain.Layout{
		Rows:       rows,
		Cols:       cols,
		Margin:     margin,
		CellWidth:  cellW,
		CellHeight: cellH,
		FontSize:   fontSize,
		Placements: placements,
	}, nil
}

func effectiveFontSize(minSide float64, cfg domain.WatermarkConfig) int {
	var size int
	switch cfg.FontSizeMode {
	case domain.FontSizeManual:
		size = cfg.ManualFontSize
	default:
		size = int(math.Round(minSide * cfg.AdaptiveRatio))
	}
	return clamp(size, domain.MinFontSize, domain.MaxFontSize)
}

// gridShape picks rows x cols >= count approximating the image aspect ratio:
// cols = round(sqrt(count * W/H)), rows = ceil(count/cols), then the grid is
// shrunk to the smallest one still holding count tiles. Landscape images give
// up rows first (keeping columns), portrait images give up columns first.
func gridShape(count, imageWidth, imageHeight int) (rows, cols int) {
	aspect := float64(imageWidth) / float64(imageHeight)
	cols = int(math.Round(math.Sqrt(float64(count) * aspect)))
	if cols < 1 {
		cols = 1
	}
	if cols > count {
		cols = count
	}
	rows = (count + cols - 1) / cols

	if imageWidth >= imageHeight {
		for rows > 1 && (rows-1)*cols >= count {
			rows--
		}
		for cols > 1 && rows*(cols-1) >= count {
			cols--
		}
	} else {
		for cols > 1 && rows*(cols-1) >= count {
			cols--
		}
		for rows > 1 && (rows-1)*cols >= count {
			rows--
		}
	}
	return rows, cols
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
