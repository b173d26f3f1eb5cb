package grid

import (
	"errors"
	"testing"
)

func TestNewFilledUsesCoordinates(t *testing.T) {
	g := NewFilled(4, 3, func(p Point) int { return p.Y*10 + p.X }, -1)
	if g.Width() != 4 || g.Height() != 3 {
		t.Fatalf("size = %dx%d", g.Width(), g.Height())
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			if got := g.At(x, y); got != y*10+x {
				t.Fatalf("At(%d,%d)=%d", x, y, got)
			}
		}
	}
}

func TestNewFilledNilGeneratorUsesDefault(t *testing.T) {
	g := NewFilled[int](2, 2, nil, 7)
	g.ForEach(func(p Point, v int) {
		if v != 7 {
			t.Fatalf("cell %+v = %d", p, v)
		}
	})
}

func TestGetOutOfBounds(t *testing.T) {
	g := NewFilled(2, 2, func(Point) string { return "x" }, "")
	for _, p := range []Point{{-1, 0}, {0, -1}, {2, 0}, {0, 2}} {
		if _, ok := g.Get(p); ok {
			t.Fatalf("Get(%+v) should be out of bounds", p)
		}
		if g.Ptr(p) != nil {
			t.Fatalf("Ptr(%+v) should be nil", p)
		}
	}
	if v, ok := g.Get(Point{1, 1}); !ok || v != "x" {
		t.Fatalf("Get(1,1) = %q,%v", v, ok)
	}
}

func TestPtrMutates(t *testing.T) {
	g := NewFilled[int](3, 3, nil, 0)
	*g.Ptr(Point{2, 1}) = 5
	if g.At(2, 1) != 5 {
		t.Fatalf("write through Ptr lost")
	}
}

func TestAtPanicsWithIndexError(t *testing.T) {
	g := NewFilled[int](3, 2, nil, 0)
	defer func() {
		r := recover()
		ie, ok := r.(*IndexError)
		if !ok {
			t.Fatalf("expected *IndexError panic, got %v", r)
		}
		if ie.X != 3 || ie.Y != 0 {
			t.Fatalf("unexpected index error: %v", ie)
		}
	}()
	g.Set(3, 0, 1)
}

func TestForEachExhaustiveRowMajor(t *testing.T) {
	g := NewFilled(3, 2, func(p Point) int { return p.Y*3 + p.X }, 0)
	next := 0
	g.ForEach(func(p Point, v int) {
		if v != next {
			t.Fatalf("visit %d got cell %d at %+v", next, v, p)
		}
		next++
	})
	if next != 6 {
		t.Fatalf("visited %d cells", next)
	}
}

func TestFromCells(t *testing.T) {
	cells := []uint8{1, 2, 3, 4, 5, 6}
	g, err := FromCells(3, 2, cells)
	if err != nil {
		t.Fatalf("FromCells: %v", err)
	}
	cells[0] = 9
	if g.At(0, 0) != 1 {
		t.Fatalf("FromCells should copy input")
	}
	if g.At(2, 1) != 6 {
		t.Fatalf("At(2,1)=%d", g.At(2, 1))
	}
	if _, err := FromCells(4, 2, cells); !errors.Is(err, ErrShape) {
		t.Fatalf("expected ErrShape, got %v", err)
	}
}
