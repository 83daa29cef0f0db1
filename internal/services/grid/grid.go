// Package grid turns DDP pixel buffers into the colour list rendered by the
// web LED grid.
package grid

import "fmt"

// Black is the colour of a pixel with no data.
const Black = "#000000"

// Update is the JSON document pushed to grid clients.
type Update struct {
	Colors []string `json:"colors"`
}

// Blank returns an update with every pixel off.
func Blank(pixelCount int) Update {
	return Update{Colors: Colors(nil, pixelCount)}
}

// Colors reads RGB triples from buf and returns exactly pixelCount "#rrggbb"
// strings. Trailing bytes that do not form a whole pixel are ignored and
// missing pixels are black.
func Colors(buf []byte, pixelCount int) []string {
	if pixelCount < 0 {
		pixelCount = 0
	}
	colors := make([]string, pixelCount)

	limit := len(buf) / 3
	if limit > pixelCount {
		limit = pixelCount
	}
	for i := 0; i < limit; i++ {
		colors[i] = Hex(buf[i*3], buf[i*3+1], buf[i*3+2])
	}
	for i := limit; i < pixelCount; i++ {
		colors[i] = Black
	}
	return colors
}

// Hex formats an RGB triple as "#rrggbb".
func Hex(r, g, b byte) string {
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}
