package source

import "fmt"

// rotate applies a rotation side-datum to a raw RGB24 frame buffer.
// degrees must already have been validated as a multiple of 90 by the
// caller; rotate itself re-checks and returns an error otherwise so it
// is safe to call directly from tests.
func rotate(img []byte, width, height, degrees int) (out []byte, newWidth, newHeight int, err error) {
	if degrees%90 != 0 {
		return nil, 0, 0, fmt.Errorf("rotation %d is not a multiple of 90 degrees", degrees)
	}
	degrees = ((degrees % 360) + 360) % 360
	switch degrees {
	case 0:
		return img, width, height, nil
	case 180:
		return rotate180(img, width, height), width, height, nil
	case 90:
		return rotate90CW(img, width, height), height, width, nil
	case 270:
		return rotate270CW(img, width, height), height, width, nil
	default:
		return nil, 0, 0, fmt.Errorf("unsupported rotation %d", degrees)
	}
}

func rotate180(img []byte, w, h int) []byte {
	out := make([]byte, len(img))
	pixels := w * h
	for i := 0; i < pixels; i++ {
		src := i * bytesPerPixel
		dst := (pixels - 1 - i) * bytesPerPixel
		copy(out[dst:dst+bytesPerPixel], img[src:src+bytesPerPixel])
	}
	return out
}

// rotate90CW rotates width x height into height x width, clockwise.
func rotate90CW(img []byte, w, h int) []byte {
	out := make([]byte, len(img))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			src := (y*w + x) * bytesPerPixel
			dstX := h - 1 - y
			dstY := x
			dst := (dstY*h + dstX) * bytesPerPixel
			copy(out[dst:dst+bytesPerPixel], img[src:src+bytesPerPixel])
		}
	}
	return out
}

func rotate270CW(img []byte, w, h int) []byte {
	out := make([]byte, len(img))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			src := (y*w + x) * bytesPerPixel
			dstX := y
			dstY := w - 1 - x
			dst := (dstY*h + dstX) * bytesPerPixel
			copy(out[dst:dst+bytesPerPixel], img[src:src+bytesPerPixel])
		}
	}
	return out
}
