package chrome

import "github.com/edgecomet/chatexport/internal/common/config"

// CSS reference pixels per inch
const pixelsPerInch = 96.0

// PaperSize is a sheet size in inches
type PaperSize struct {
	Width  float64
	Height float64
}

var paperSizes = map[string]PaperSize{
	config.PaperA4:     {Width: 8.27, Height: 11.69},
	config.PaperLetter: {Width: 8.5, Height: 11},
	config.PaperLegal:  {Width: 8.5, Height: 14},
}

// LookupPaper returns the dimensions of a named format
func LookupPaper(name string) (PaperSize, bool) {
	size, ok := paperSizes[name]
	return size, ok
}

// PixelsToInches converts a CSS pixel length to inches
func PixelsToInches(px float64) float64 {
	return px / pixelsPerInch
}
