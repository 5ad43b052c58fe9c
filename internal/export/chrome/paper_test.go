package chrome

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edgecomet/chatexport/internal/common/config"
)

func TestLookupPaper(t *testing.T) {
	for _, name := range config.SupportedPaperFormats {
		size, ok := LookupPaper(name)
		assert.True(t, ok, name)
		assert.Greater(t, size.Height, size.Width, name)
	}

	a4, _ := LookupPaper(config.PaperA4)
	assert.Equal(t, PaperSize{Width: 8.27, Height: 11.69}, a4)

	_, ok := LookupPaper("Tabloid")
	assert.False(t, ok)
}

func TestPixelsToInches(t *testing.T) {
	assert.InDelta(t, 0.2083, PixelsToInches(20), 0.0001)
	assert.Equal(t, 1.0, PixelsToInches(96))
	assert.Equal(t, 0.0, PixelsToInches(0))
}
