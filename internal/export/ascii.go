package export

import (
	"fmt"
	"strings"

	"github.com/jsjgdh/Graphite/internal/render"
)

const (
	asciiRamp       = " .,:;i1tfLCG08@"
	asciiCharWidth  = 6.0
	asciiCharHeight = 10.0
	asciiContrast   = 1.2
	// asciiCellSize groups pixels into one character for reasonable output size.
	asciiCellSize = 8
)

// AsciiArtSVG transcodes a raster buffer into an SVG of colored monospace
// characters, one per cell of pixels, chosen by average cell luminance.
func AsciiArtSVG(img *render.Raster) (string, float64, float64) {
	cols := img.Width / asciiCellSize
	if cols < 1 {
		cols = 1
	}
	rows := img.Height / asciiCellSize
	if rows < 1 {
		rows = 1
	}
	svgWidth := float64(cols) * asciiCharWidth
	svgHeight := float64(rows) * asciiCharHeight

	var svg strings.Builder
	svg.Grow((cols + 1) * rows * 50)
	svg.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="no"?>`)
	fmt.Fprintf(&svg, `<svg xmlns="http://www.w3.org/2000/svg" width="%g" height="%g">`, svgWidth, svgHeight)
	svg.WriteString(`<style>text{font-family:'Courier New',Courier,monospace;font-size:10px;white-space:pre;}</style>`)
	svg.WriteString(`<rect width="100%" height="100%" fill="black" />`)

	for row := 0; row < rows; row++ {
		yPos := float64(row+1) * asciiCharHeight
		fmt.Fprintf(&svg, `<text x="0" y="%g" xml:space="preserve">`, yPos)
		for col := 0; col < cols; col++ {
			lum, r, g, b := sampleCell(img, col, row)
			idx := int(lum*float64(len(asciiRamp)-1) + 0.5)
			if idx >= len(asciiRamp) {
				idx = len(asciiRamp) - 1
			}
			ch := asciiRamp[idx]
			if ch == ' ' {
				svg.WriteByte(' ')
				continue
			}
			fmt.Fprintf(&svg, `<tspan fill="#%02x%02x%02x">%s</tspan>`, r, g, b, escapeChar(ch))
		}
		svg.WriteString("</text>")
	}

	svg.WriteString("</svg>")
	return svg.String(), svgWidth, svgHeight
}

// sampleCell averages a cell's luminance (contrast-stretched) and color.
func sampleCell(img *render.Raster, cellX, cellY int) (float64, uint8, uint8, uint8) {
	startX := cellX * asciiCellSize
	startY := cellY * asciiCellSize
	endX := startX + asciiCellSize
	if endX > img.Width {
		endX = img.Width
	}
	endY := startY + asciiCellSize
	if endY > img.Height {
		endY = img.Height
	}

	var totalLum float64
	var totalR, totalG, totalB, count uint64
	for y := startY; y < endY; y++ {
		for x := startX; x < endX; x++ {
			r, g, b, _ := img.At(x, y)
			totalLum += (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 255.0
			totalR += uint64(r)
			totalG += uint64(g)
			totalB += uint64(b)
			count++
		}
	}
	if count == 0 {
		return 0, 0, 0, 0
	}

	lum := (totalLum/float64(count)-0.5)*asciiContrast + 0.5
	if lum < 0 {
		lum = 0
	} else if lum > 1 {
		lum = 1
	}
	return lum, uint8(totalR / count), uint8(totalG / count), uint8(totalB / count)
}

func escapeChar(c byte) string {
	switch c {
	case '<':
		return "&lt;"
	case '>':
		return "&gt;"
	case '&':
		return "&amp;"
	case '"':
		return "&quot;"
	}
	return string(c)
}
