package game

// Rect is an axis-aligned box in play area coordinates, where y grows upward
// from the bottom of the play area.
type Rect struct {
	Left   float64
	Bottom float64
	Width  float64
	Height float64
}

func (r Rect) Right() float64 {
	return r.Left + r.Width
}

func (r Rect) Top() float64 {
	return r.Bottom + r.Height
}

// Intersects reports whether two boxes overlap. Boxes that only touch count.
func (r Rect) Intersects(other Rect) bool {
	return r.Left <= other.Right() &&
		other.Left <= r.Right() &&
		r.Bottom <= other.Top() &&
		other.Bottom <= r.Top()
}
