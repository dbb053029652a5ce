/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package geometry holds the pure coordinate math for the field-placement
// canvas: pointer-pixel to percent-of-canvas conversion and resize-delta
// math. No stored state, no side effects; clamping policy lives with the
// callers so the raw conversions stay reusable for unclamped drag deltas.
package geometry

// Pt is a 2D pointer position in screen pixels.
type Pt struct{ X, Y float64 }

// Size is a width/height pair in canvas-space pixels at 100% zoom.
type Size struct{ W, H float64 }

// CanvasRect is the DOM-measured rectangle of one rendered document page.
// Callers guarantee Width > 0 and Height > 0.
type CanvasRect struct {
	Left, Top     float64
	Width, Height float64
}

// Resize floors. Fields smaller than this degenerate into invisible or
// unclickable targets.
const (
	MinFieldWidth  = 30
	MinFieldHeight = 20
)

// BaseDocWidth is the logical document width in pixels at 100% zoom.
const BaseDocWidth = 612

// PixelToPercent converts a pointer position to percent-of-canvas
// coordinates. The result is not clamped; out-of-range values are returned
// as-is.
func PixelToPercent(p Pt, c CanvasRect) (xPct, yPct float64) {
	xPct = (p.X - c.Left) / c.Width * 100
	yPct = (p.Y - c.Top) / c.Height * 100
	return xPct, yPct
}

// PercentToPixel is the inverse of PixelToPercent.
func PercentToPixel(xPct, yPct float64, c CanvasRect) Pt {
	return Pt{
		X: c.Left + xPct/100*c.Width,
		Y: c.Top + yPct/100*c.Height,
	}
}

// ClampPercent clamps percent coordinates to [0, maxX] x [0, maxY].
func ClampPercent(xPct, yPct, maxX, maxY float64) (float64, float64) {
	return clamp(xPct, 0, maxX), clamp(yPct, 0, maxY)
}

// ResizeDelta converts a pointer drag from start to cur into a new size.
// scale is the current zoom ratio relative to the 100%-zoom pixel grid
// (zoomPercent/100). The result is floored at MinFieldWidth x MinFieldHeight.
func ResizeDelta(start, cur Pt, startSize Size, scale float64) Size {
	if scale <= 0 {
		scale = 1
	}
	w := startSize.W + (cur.X-start.X)/scale
	h := startSize.H + (cur.Y-start.Y)/scale
	return Size{W: max(w, MinFieldWidth), H: max(h, MinFieldHeight)}
}

// FloorSize applies the minimum-size floors to an arbitrary size.
func FloorSize(s Size) Size {
	return Size{W: max(s.W, MinFieldWidth), H: max(s.H, MinFieldHeight)}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
