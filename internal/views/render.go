package views

import (
	"bytes"
	"encoding/csv"
	"html"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"strings"
)

// WriteCSV writes the table header and rows. Missing cells are empty.
func WriteCSV(w io.Writer, t Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns); err != nil {
		return err
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i := range t.Columns {
			record[i] = FormatCell(row[i])
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// CSV returns the table rendered by WriteCSV.
func CSV(t Table) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := WriteCSV(buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HTML renders a self-contained page with the value boxes and the table.
func HTML(title string, s Summary, t Table) []byte {
	buf := &strings.Builder{}
	buf.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>")
	buf.WriteString(html.EscapeString(title))
	buf.WriteString("</title></head><body><h1>")
	buf.WriteString(html.EscapeString(title))
	buf.WriteString("</h1><dl>")
	for _, box := range [][2]string{
		{"Number of penguins", s.Text.Count},
		{"Average bill length", s.Text.MeanBillLength},
		{"Average bill depth", s.Text.MeanBillDepth},
	} {
		buf.WriteString("<dt>")
		buf.WriteString(box[0])
		buf.WriteString("</dt><dd>")
		buf.WriteString(html.EscapeString(box[1]))
		buf.WriteString("</dd>")
	}
	buf.WriteString("</dl><table><thead><tr>")
	for _, column := range t.Columns {
		buf.WriteString("<th>")
		buf.WriteString(html.EscapeString(column))
		buf.WriteString("</th>")
	}
	buf.WriteString("</tr></thead><tbody>")
	for _, row := range t.Rows {
		buf.WriteString("<tr>")
		for i := range t.Columns {
			buf.WriteString("<td>")
			buf.WriteString(html.EscapeString(FormatCell(row[i])))
			buf.WriteString("</td>")
		}
		buf.WriteString("</tr>")
	}
	buf.WriteString("</tbody></table></body></html>")
	return []byte(buf.String())
}

var seriesPalette = []color.RGBA{
	{255, 140, 0, 255},  // darkorange
	{0, 128, 128, 255},  // teal
	{160, 32, 240, 255}, // purple
	{0, 102, 204, 255},
	{128, 128, 128, 255},
}

// SeriesColor returns the fill used for the i-th histogram series.
func SeriesColor(i int) color.RGBA {
	return seriesPalette[i%len(seriesPalette)]
}

// PNG draws the histogram as stacked bars. An empty histogram renders a blank
// canvas with only the baseline.
func PNG(h Histogram, width, height int) ([]byte, error) {
	if width <= 0 {
		width = 400
	}
	if height <= 0 {
		height = 200
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

	const margin = 10
	baseline := height - margin
	draw.Draw(img, image.Rect(0, baseline, width, baseline+1), &image.Uniform{color.Black}, image.Point{}, draw.Src)

	peak := h.Max()
	if len(h.Bins) > 0 && peak > 0 {
		barWidth := width / len(h.Bins)
		if barWidth < 1 {
			barWidth = 1
		}
		usable := float64(baseline - margin)
		for b := range h.Bins {
			x0 := b * barWidth
			x1 := x0 + barWidth - 1
			if x1 <= x0 {
				x1 = x0 + 1
			}
			top := baseline
			for si, s := range h.Series {
				n := s.Counts[b]
				if n == 0 {
					continue
				}
				barHeight := int(usable * float64(n) / float64(peak))
				if barHeight < 1 {
					barHeight = 1
				}
				rect := image.Rect(x0, top-barHeight, x1, top)
				draw.Draw(img, rect, &image.Uniform{SeriesColor(si)}, image.Point{}, draw.Src)
				top -= barHeight
			}
		}
	}
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
