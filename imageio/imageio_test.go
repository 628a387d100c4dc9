package imageio_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-render/tessera/imageio"
)

func solidPixels(width, height int, b, g, r, a byte) []byte {
	pixels := make([]byte, width*height*4)
	for i := 0; i < len(pixels); i += 4 {
		pixels[i+0] = b
		pixels[i+1] = g
		pixels[i+2] = r
		pixels[i+3] = a
	}
	return pixels
}

func TestWriteBMPHeaderAndFileSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.bmp")
	width, height := 4, 3

	require.NoError(t, imageio.WriteBMP(path, width, height, solidPixels(width, height, 10, 20, 30, 255)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "BM", string(data[0:2]))
	outPitch := (width*3 + 3) / 4 * 4
	wantSize := 54 + outPitch*height
	assert.Len(t, data, wantSize)

	// First pixel of the bottom-up output is the last row of the
	// top-down input buffer, in BGR order with alpha dropped.
	assert.Equal(t, []byte{10, 20, 30}, data[54:57])
}

func TestWriteBMPRejectsMismatchedBufferSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.bmp")
	err := imageio.WriteBMP(path, 4, 4, make([]byte, 3))
	assert.Error(t, err)
}

func TestWriteWebPPreviewProducesNonEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "preview.webp")
	width, height := 16, 16

	require.NoError(t, imageio.WriteWebPPreview(path, width, height, solidPixels(width, height, 40, 80, 120, 255), 80))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
