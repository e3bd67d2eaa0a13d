package session

import (
	"testing"
	"time"
)

var testCanvas = Canvas{Width: 1200, Height: 800}

func TestResolveDropPositionKeepsFreeSpot(t *testing.T) {
	x, y := ResolveDropPosition(Rect{X: 100, Y: 100, Width: 256, Height: 150}, nil, testCanvas)
	if x != 100 || y != 100 {
		t.Fatalf("free spot must not move, got (%v, %v)", x, y)
	}
}

func TestResolveDropPositionClampsToPaddedCanvas(t *testing.T) {
	x, y := ResolveDropPosition(Rect{X: -500, Y: -500, Width: 256, Height: 150}, nil, testCanvas)
	if x != canvasPadding || y != canvasPadding {
		t.Fatalf("expected clamp to padding, got (%v, %v)", x, y)
	}

	x, y = ResolveDropPosition(Rect{X: 5000, Y: 5000, Width: 256, Height: 150}, nil, testCanvas)
	wantX := testCanvas.Width - 256 - canvasPadding
	wantY := testCanvas.Height - 150 - canvasPadding
	if x != wantX || y != wantY {
		t.Fatalf("expected clamp to far edge (%v, %v), got (%v, %v)", wantX, wantY, x, y)
	}
}

func TestResolveDropPositionNudgesOffNeighbour(t *testing.T) {
	neighbour := Rect{X: 100, Y: 100, Width: 20, Height: 20}
	x, y := ResolveDropPosition(Rect{X: 100, Y: 100, Width: 256, Height: 150}, []Rect{neighbour}, testCanvas)
	if x == 100 && y == 100 {
		t.Fatal("overlapping drop must be nudged")
	}
	if (x-100) != (y-100) {
		t.Fatalf("nudge must move both axes equally, got (%v, %v)", x, y)
	}
	final := Rect{X: x, Y: y, Width: 256, Height: 150}
	if final.overlaps(neighbour) {
		t.Fatalf("nudged position still overlaps: (%v, %v)", x, y)
	}
}

func TestResolveDropPositionGivesUpOnCrowdedBoard(t *testing.T) {
	// A wall of notes the nudge cannot escape within its attempt budget.
	var wall []Rect
	for i := 0; i < 40; i++ {
		wall = append(wall, Rect{X: float64(i) * 10, Y: float64(i) * 10, Width: 600, Height: 600})
	}

	done := make(chan struct{})
	go func() {
		ResolveDropPosition(Rect{X: 30, Y: 30, Width: 256, Height: 150}, wall, testCanvas)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collision resolution must terminate on crowded boards")
	}
}

func TestResolveDropPositionOnTinyCanvas(t *testing.T) {
	tiny := Canvas{Width: 100, Height: 80}
	x, y := ResolveDropPosition(Rect{X: 500, Y: 500, Width: 256, Height: 150}, nil, tiny)
	if x != canvasPadding || y != canvasPadding {
		t.Fatalf("tiny canvas must floor at padding, got (%v, %v)", x, y)
	}
}
