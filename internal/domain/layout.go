package domain

// Placement is the center and style of one watermark tile. Font size and
// rotation are uniform across a layout; they are carried per placement so a
// renderer needs nothing beyond the placement itself.
type Placement struct {
	CenterX  float64
	CenterY  float64
	FontSize int
	Rotation float64
}

// Layout is the derived geometry for one image. It is recomputed per image
// and discarded after rendering, never persisted.
type Layout struct {
	Rows       int
	Cols       int
	Margin     float64
	CellWidth  float64
	CellHeight float64
	FontSize   int
	Placements []Placement
}
