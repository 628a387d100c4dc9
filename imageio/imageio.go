// Package imageio writes a rendered frame to disk. It writes an
// uncompressed BMP unconditionally (the original renderer's only output
// format) and, optionally, a lossy WebP preview wired through
// github.com/deepteams/webp for faster eyeballing than a full-size BMP
// allows.
package imageio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/deepteams/webp"
)

const (
	bmpHeaderSize     = 54
	bmpBitsPerPixel   = 24
	bmpPixelsPerMeter = 2835
)

// WriteBMP writes pixels, a tightly packed BGRA8 buffer of width*height
// pixels in top-down row order (as produced by pathtracer.RenderFrame),
// to path as an uncompressed 24-bit BMP. Rows are flipped to BMP's
// bottom-up convention and the alpha channel is dropped, mirroring
// write_bmp's (stride=4, pitch=width*4) call from the source renderer.
func WriteBMP(path string, width, height int, pixels []byte) error {
	if len(pixels) != width*height*4 {
		return fmt.Errorf("imageio: pixel buffer has %d bytes, want %d", len(pixels), width*height*4)
	}

	outPitch := (width*3 + 3) / 4 * 4
	fileSize := bmpHeaderSize + outPitch*height

	buf := make([]byte, fileSize)
	buf[0], buf[1] = 'B', 'M'
	binary.LittleEndian.PutUint32(buf[0x02:], uint32(fileSize))
	binary.LittleEndian.PutUint32(buf[0x0A:], bmpHeaderSize)

	binary.LittleEndian.PutUint32(buf[0x0E:], 40) // DIB header size
	binary.LittleEndian.PutUint32(buf[0x12:], uint32(width))
	binary.LittleEndian.PutUint32(buf[0x16:], uint32(height))
	binary.LittleEndian.PutUint16(buf[0x1A:], 1) // color planes
	binary.LittleEndian.PutUint16(buf[0x1C:], bmpBitsPerPixel)
	binary.LittleEndian.PutUint32(buf[0x1E:], 0) // no compression
	binary.LittleEndian.PutUint32(buf[0x22:], uint32(outPitch*height))
	binary.LittleEndian.PutUint32(buf[0x26:], bmpPixelsPerMeter)
	binary.LittleEndian.PutUint32(buf[0x2A:], bmpPixelsPerMeter)

	rows := buf[bmpHeaderSize:]
	for y := 0; y < height; y++ {
		srcRow := (height - 1 - y) * width * 4
		dstRow := y * outPitch
		for x := 0; x < width; x++ {
			src := pixels[srcRow+x*4 : srcRow+x*4+3]
			copy(rows[dstRow+x*3:dstRow+x*3+3], src)
		}
	}

	return os.WriteFile(path, buf, 0o644)
}

// WriteWebPPreview re-packs the same BGRA8 buffer WriteBMP takes into an
// image.Image and encodes it as a lossy WebP at path, for quickly
// previewing a frame without decoding a full-size BMP.
func WriteWebPPreview(path string, width, height int, pixels []byte, quality float32) error {
	if len(pixels) != width*height*4 {
		return fmt.Errorf("imageio: pixel buffer has %d bytes, want %d", len(pixels), width*height*4)
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * 4
			img.SetNRGBA(x, y, color.NRGBA{R: pixels[i+2], G: pixels[i+1], B: pixels[i+0], A: pixels[i+3]})
		}
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.EncoderOptions{Quality: quality, Method: 4}); err != nil {
		return fmt.Errorf("imageio: encoding webp preview: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
