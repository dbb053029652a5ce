/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders placement summaries of a prepared request: a
// multi-page PDF and per-page PNG previews showing every field outline in
// its recipient's color. Summaries are review artifacts, not the signing
// document itself.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"sigflow/internal/domain"
	"sigflow/internal/submit"
)

// Letter-sized pages in points. Field coordinates are percentages of the
// page box, so the summary does not need the uploaded file itself.
const (
	pageWidthPt  = 612.0
	pageHeightPt = 792.0
)

// PDFOptions controls summary PDF rendering.
type PDFOptions struct {
	Pages []int // 1-based; empty means all pages
}

// WriteSummaryPDF renders one PDF page per document page with every field
// drawn as a colored outline carrying its label and recipient name.
func WriteSummaryPDF(r submit.Request, outPath string, opt PDFOptions) error {
	if r.Document.PageCount < 1 {
		return fmt.Errorf("request has no document pages")
	}
	byID := recipientIndex(r.Recipients)

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pageWidthPt, Ht: pageHeightPt},
	})
	pdf.SetTitle(r.Details.Name+" field placement", false)
	pdf.SetFont("Helvetica", "", 9)

	for _, page := range pageNumbers(r.Document.PageCount, opt.Pages) {
		pdf.AddPageFormat("", gofpdf.SizeType{Wd: pageWidthPt, Ht: pageHeightPt})
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(60, 60, 60)
		pdf.Text(24, 24, fmt.Sprintf("%s  (page %d of %d)", r.Details.Name, page, r.Document.PageCount))
		pdf.SetFont("Helvetica", "", 9)

		for _, f := range r.Fields {
			if f.Page != page {
				continue
			}
			cr, cg, cb := fieldColor(f, byID)
			x := f.X / 100 * pageWidthPt
			y := f.Y / 100 * pageHeightPt
			pdf.SetDrawColor(cr, cg, cb)
			pdf.SetLineWidth(1)
			pdf.Rect(x, y, f.Width, f.Height, "D")
			pdf.SetTextColor(cr, cg, cb)
			pdf.Text(x+3, y+11, fieldCaption(f, byID))
		}
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write summary pdf: %w", err)
	}
	return nil
}

func recipientIndex(recs []domain.Recipient) map[string]domain.Recipient {
	byID := make(map[string]domain.Recipient, len(recs))
	for _, r := range recs {
		byID[r.ID] = r
	}
	return byID
}

func fieldCaption(f domain.SignatureField, byID map[string]domain.Recipient) string {
	label := f.Label
	if label == "" {
		label = f.Type.Label()
	}
	if rec, ok := byID[f.RecipientID]; ok {
		return label + " / " + rec.Name
	}
	return label
}

// fieldColor resolves the owning recipient's hex color to RGB, falling back
// to gray for unresolvable references.
func fieldColor(f domain.SignatureField, byID map[string]domain.Recipient) (int, int, int) {
	rec, ok := byID[f.RecipientID]
	if !ok {
		return 128, 128, 128
	}
	cr, cg, cb, err := parseHexColor(rec.Color)
	if err != nil {
		return 128, 128, 128
	}
	return cr, cg, cb
}

func parseHexColor(s string) (int, int, int, error) {
	if len(s) != 7 || s[0] != '#' {
		return 0, 0, 0, fmt.Errorf("malformed color %q", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("malformed color %q", s)
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), nil
}

func pageNumbers(total int, specific []int) []int {
	if len(specific) == 0 {
		out := make([]int, total)
		for i := range out {
			out[i] = i + 1
		}
		return out
	}
	var out []int
	for _, p := range specific {
		if p >= 1 && p <= total {
			out = append(out, p)
		}
	}
	return out
}
