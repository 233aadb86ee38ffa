package source

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func px(vals ...byte) []byte { return vals }

func TestRotate_90CWRemapsCorners(t *testing.T) {
	// 2x1 image: pixel (0,0)=red, pixel (1,0)=green.
	img := px(255, 0, 0, 0, 255, 0)

	out, w, h, err := rotate(img, 2, 1, 90)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if w != 1 || h != 2 {
		t.Fatalf("want 1x2 after 90CW rotation of 2x1, got %dx%d", w, h)
	}
	// after a 90CW rotation the former top-left pixel lands at (0,0)
	// and the former top-right pixel lands at (0, h-1).
	want := px(255, 0, 0, 0, 255, 0)
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("rotate(90) mismatch (-want +got):\n%s", diff)
	}
}

func TestRotate_180ReversesPixelOrder(t *testing.T) {
	img := px(1, 2, 3, 4, 5, 6)
	out, w, h, err := rotate(img, 2, 1, 180)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if w != 2 || h != 1 {
		t.Fatalf("180 rotation must preserve dimensions, got %dx%d", w, h)
	}
	want := px(4, 5, 6, 1, 2, 3)
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("rotate(180) mismatch (-want +got):\n%s", diff)
	}
}

func TestRotate_270IsInverseOf90(t *testing.T) {
	img := px(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)
	rotated90, w1, h1, err := rotate(img, 2, 2, 90)
	if err != nil {
		t.Fatalf("rotate 90: %v", err)
	}
	back, w2, h2, err := rotate(rotated90, w1, h1, 270)
	if err != nil {
		t.Fatalf("rotate 270: %v", err)
	}
	if w2 != 2 || h2 != 2 {
		t.Fatalf("want original 2x2 dimensions back, got %dx%d", w2, h2)
	}
	if diff := cmp.Diff(img, back); diff != "" {
		t.Fatalf("rotate(90) then rotate(270) mismatch (-want +got):\n%s", diff)
	}
}

func TestRotate_RejectsNonMultipleOf90(t *testing.T) {
	if _, _, _, err := rotate(make([]byte, 3), 1, 1, 45); err == nil {
		t.Fatal("want an error for a non-multiple-of-90 rotation")
	}
}

func TestRotate_ZeroDegreesReturnsInputUnchanged(t *testing.T) {
	img := px(9, 9, 9)
	out, w, h, err := rotate(img, 1, 1, 0)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if w != 1 || h != 1 {
		t.Fatalf("want dimensions unchanged, got %dx%d", w, h)
	}
	if diff := cmp.Diff(img, out); diff != "" {
		t.Fatalf("rotate(0) mismatch (-want +got):\n%s", diff)
	}
}
