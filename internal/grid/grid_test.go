package grid

import "testing"

func TestTileFromPixel(t *testing.T) {
	tile := TileFromPixel(Point{X: 24, Y: 40}, 16)
	if tile != (Tile{X: 1, Y: 2}) {
		t.Fatalf("expected (1,2) got %v", tile)
	}
}

func TestTileFromPixel_NegativeFloors(t *testing.T) {
	tile := TileFromPixel(Point{X: -1, Y: -17}, 16)
	if tile != (Tile{X: -1, Y: -2}) {
		t.Fatalf("expected (-1,-2) got %v", tile)
	}
}

func TestPixelFromTile(t *testing.T) {
	p := PixelFromTile(Tile{X: 2, Y: 3}, 16)
	// center of cell (2,3): 2*16+8=40, 3*16+8=56
	if p.X != 40 || p.Y != 56 {
		t.Fatalf("expected (40,56) got (%.0f,%.0f)", p.X, p.Y)
	}
}

func TestPixelFromTile_OddSizeFloors(t *testing.T) {
	p := PixelFromTile(Tile{X: 1, Y: 0}, 15)
	// 15 + 7.5 floored
	if p.X != 22 || p.Y != 7 {
		t.Fatalf("expected (22,7) got (%.1f,%.1f)", p.X, p.Y)
	}
}

func TestTilePixelRoundTrip(t *testing.T) {
	for _, size := range []int{1, 7, 16, 32, 48} {
		for y := 0; y < 20; y++ {
			for x := 0; x < 20; x++ {
				tile := Tile{X: x, Y: y}
				got := TileFromPixel(PixelFromTile(tile, size), size)
				if got != tile {
					t.Fatalf("size %d: round trip of %v gave %v", size, tile, got)
				}
			}
		}
	}
}

func TestTilesEqual(t *testing.T) {
	a := &Tile{X: 1, Y: 2}
	b := &Tile{X: 1, Y: 2}
	c := &Tile{X: 2, Y: 1}
	if !TilesEqual(a, b) {
		t.Fatal("equal tiles reported different")
	}
	if TilesEqual(a, c) {
		t.Fatal("different tiles reported equal")
	}
	if TilesEqual(a, nil) || TilesEqual(nil, a) {
		t.Fatal("absent tile must not equal a present tile")
	}
	if !TilesEqual(nil, nil) {
		t.Fatal("two absent tiles should compare equal")
	}
}

func TestClamp(t *testing.T) {
	if Clamp(-3, 0, 4) != 0 || Clamp(9, 0, 4) != 4 || Clamp(2, 0, 4) != 2 {
		t.Fatal("clamp out of range")
	}
}

func TestFacing_HorizontalWins(t *testing.T) {
	if d := Facing(-3, 5, DirTop); d != DirLeft {
		t.Fatalf("expected left, got %s", d)
	}
	if d := Facing(0, -2, DirLeft); d != DirTop {
		t.Fatalf("expected top, got %s", d)
	}
	if d := Facing(0, 0, DirRight); d != DirRight {
		t.Fatalf("zero residual should keep facing, got %s", d)
	}
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("up")
	if err != nil || d != DirTop {
		t.Fatalf("expected top, got %s (%v)", d, err)
	}
	if _, err := ParseDirection("sideways"); err == nil {
		t.Fatal("expected error for unknown direction")
	}
}
