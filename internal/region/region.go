// Package region models the monitored screen rectangle.
package region

import (
	"fmt"
	"image"
	"strconv"
	"strings"
)

// Point is an integer pixel coordinate.
type Point struct {
	X, Y int
}

// String renders the point in the config file format "x,y".
func (p Point) String() string {
	return strconv.Itoa(p.X) + "," + strconv.Itoa(p.Y)
}

// ParsePoint parses "x,y".
func ParsePoint(s string) (Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return Point{}, fmt.Errorf("point %q: want x,y", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return Point{}, fmt.Errorf("point %q: bad x: %w", s, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return Point{}, fmt.Errorf("point %q: bad y: %w", s, err)
	}
	return Point{X: x, Y: y}, nil
}

// Corner identifies one of the two defining corners.
type Corner int

const (
	TopLeft Corner = iota
	BottomRight
)

func (c Corner) String() string {
	switch c {
	case TopLeft:
		return "top_left"
	case BottomRight:
		return "bottom_right"
	default:
		return "corner(" + strconv.Itoa(int(c)) + ")"
	}
}

// ParseCorner accepts "top_left"/"bottom_right" and the hyphenated forms.
func ParseCorner(s string) (Corner, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "top_left", "tl":
		return TopLeft, nil
	case "bottom_right", "br":
		return BottomRight, nil
	}
	return 0, fmt.Errorf("unknown corner %q", s)
}

// Region is a pair of optional corners. It is a plain value: copying it
// takes a snapshot that later SetCorner calls on the original cannot touch.
type Region struct {
	topLeft     Point
	bottomRight Point
	hasTL       bool
	hasBR       bool
}

// New returns a defined region from two points, in any order.
func New(a, b Point) Region {
	var r Region
	r.SetCorner(TopLeft, a)
	r.SetCorner(BottomRight, b)
	return r
}

// SetCorner stores p, overwriting any previous value for c.
func (r *Region) SetCorner(c Corner, p Point) {
	switch c {
	case TopLeft:
		r.topLeft, r.hasTL = p, true
	case BottomRight:
		r.bottomRight, r.hasBR = p, true
	}
}

// Corner returns the stored point for c.
func (r Region) Corner(c Corner) (Point, bool) {
	switch c {
	case TopLeft:
		return r.topLeft, r.hasTL
	case BottomRight:
		return r.bottomRight, r.hasBR
	}
	return Point{}, false
}

// IsDefined reports whether both corners are present.
func (r Region) IsDefined() bool { return r.hasTL && r.hasBR }

// IsPartial reports whether exactly one corner is present.
func (r Region) IsPartial() bool { return r.hasTL != r.hasBR }

// Normalize swaps coordinates pairwise so that top_left <= bottom_right on
// both axes. It returns false when the region is not defined.
func (r *Region) Normalize() bool {
	if !r.IsDefined() {
		return false
	}
	if r.topLeft.X > r.bottomRight.X {
		r.topLeft.X, r.bottomRight.X = r.bottomRight.X, r.topLeft.X
	}
	if r.topLeft.Y > r.bottomRight.Y {
		r.topLeft.Y, r.bottomRight.Y = r.bottomRight.Y, r.topLeft.Y
	}
	return true
}

// Rect returns the normalized rectangle [top_left, bottom_right).
func (r Region) Rect() (image.Rectangle, bool) {
	if !r.Normalize() {
		return image.Rectangle{}, false
	}
	return image.Rect(r.topLeft.X, r.topLeft.Y, r.bottomRight.X, r.bottomRight.Y), true
}

func (r Region) String() string {
	corner := func(p Point, ok bool) string {
		if !ok {
			return "unset"
		}
		return "(" + p.String() + ")"
	}
	return corner(r.topLeft, r.hasTL) + "-" + corner(r.bottomRight, r.hasBR)
}
