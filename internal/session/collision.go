package session

// Rect is an axis-aligned note footprint on the board canvas.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

const (
	canvasPadding    = 24.0
	nudgeStep        = 12.0
	maxNudgeAttempts = 8
)

// Canvas describes the scrollable board surface notes are placed on.
type Canvas struct {
	Width  float64
	Height float64
}

func (r Rect) overlaps(other Rect) bool {
	return !(r.X >= other.X+other.Width ||
		r.X+r.Width <= other.X ||
		r.Y >= other.Y+other.Height ||
		r.Y+r.Height <= other.Y)
}

// clampToCanvas keeps the rect inside the padded canvas. The upper bounds
// floor at the padding so a canvas smaller than the note still yields a
// usable position.
func clampToCanvas(target Rect, canvas Canvas) Rect {
	maxX := canvas.Width - target.Width - canvasPadding
	if maxX < canvasPadding {
		maxX = canvasPadding
	}
	maxY := canvas.Height - target.Height - canvasPadding
	if maxY < canvasPadding {
		maxY = canvasPadding
	}
	if target.X < canvasPadding {
		target.X = canvasPadding
	}
	if target.X > maxX {
		target.X = maxX
	}
	if target.Y < canvasPadding {
		target.Y = canvasPadding
	}
	if target.Y > maxY {
		target.Y = maxY
	}
	return target
}

// ResolveDropPosition finalizes a dragged note's position: clamp to the
// canvas, nudge diagonally away from overlapping neighbours for a bounded
// number of attempts, then clamp again. The nudge gives up rather than loop
// forever on a crowded board; a residual overlap is acceptable.
func ResolveDropPosition(target Rect, others []Rect, canvas Canvas) (float64, float64) {
	target = clampToCanvas(target, canvas)

	for attempt := 0; attempt < maxNudgeAttempts; attempt++ {
		collided := false
		for _, other := range others {
			if target.overlaps(other) {
				target.X += nudgeStep
				target.Y += nudgeStep
				collided = true
				break
			}
		}
		if !collided {
			break
		}
	}

	target = clampToCanvas(target, canvas)
	return target.X, target.Y
}
