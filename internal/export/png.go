/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"sigflow/internal/submit"
)

// PNGOptions controls preview rendering.
// - DPI scales the output pixel size; zero means 96.
// - Pages: 1-based; empty means all pages.
type PNGOptions struct {
	DPI   int
	Pages []int
}

// WritePreviewPNGs renders one PNG per document page into outDir, named
// page-<n>.png, with field outlines and captions in the recipient colors.
func WritePreviewPNGs(r submit.Request, outDir string, opt PNGOptions) error {
	if r.Document.PageCount < 1 {
		return fmt.Errorf("request has no document pages")
	}
	dpi := opt.DPI
	if dpi <= 0 {
		dpi = 96
	}
	scale := float64(dpi) / 72.0
	pixW := int(math.Round(pageWidthPt * scale))
	pixH := int(math.Round(pageHeightPt * scale))
	byID := recipientIndex(r.Recipients)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}

	for _, page := range pageNumbers(r.Document.PageCount, opt.Pages) {
		img := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
		draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)
		strokeRect(img, 0, 0, pixW-1, pixH-1, color.RGBA{200, 200, 200, 255})

		for _, f := range r.Fields {
			if f.Page != page {
				continue
			}
			cr, cg, cb := fieldColor(f, byID)
			col := color.RGBA{uint8(cr), uint8(cg), uint8(cb), 255}
			x0 := int(math.Round(f.X / 100 * pageWidthPt * scale))
			y0 := int(math.Round(f.Y / 100 * pageHeightPt * scale))
			x1 := x0 + int(math.Round(f.Width*scale))
			y1 := y0 + int(math.Round(f.Height*scale))
			strokeRect(img, x0, y0, x1, y1, col)
			drawLabel(img, x0+3, y0+12, fieldCaption(f, byID), col)
		}

		out := filepath.Join(outDir, fmt.Sprintf("page-%d.png", page))
		fh, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		if err := png.Encode(fh, img); err != nil {
			fh.Close()
			return fmt.Errorf("encode %s: %w", out, err)
		}
		if err := fh.Close(); err != nil {
			return fmt.Errorf("close %s: %w", out, err)
		}
	}
	return nil
}

func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, c color.Color) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	for x := x0; x <= x1; x++ {
		img.Set(x, y0, c)
		img.Set(x, y1, c)
	}
	for y := y0; y <= y1; y++ {
		img.Set(x0, y, c)
		img.Set(x1, y, c)
	}
}

func drawLabel(img *image.RGBA, x, y int, text string, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
