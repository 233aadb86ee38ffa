// Package iou implements the IOU-based multi-object tracker (C5): a
// per-frame greedy matcher that links detections into tracks by
// intersection-over-union, closing each track as finished or discarded
// once it ages out past t_miss_max.
package iou

import "github.com/otvision-go/otvision/internal/domain"

// box is the corner-form representation of a center-xywh Detection,
// used only to compute intersection over union.
type box struct {
	x1, y1, x2, y2 float32
}

func boxFromDetection(d domain.Detection) box {
	halfW, halfH := d.W/2, d.H/2
	return box{
		x1: d.X - halfW,
		y1: d.Y - halfH,
		x2: d.X + halfW,
		y2: d.Y + halfH,
	}
}

// iou computes standard intersection-over-union of two corner-form
// boxes; exactly zero when the boxes are disjoint.
func iouOf(a, b box) float32 {
	ix1, iy1 := max(a.x1, b.x1), max(a.y1, b.y1)
	ix2, iy2 := min(a.x2, b.x2), min(a.y2, b.y2)

	iw, ih := ix2-ix1, iy2-iy1
	if iw <= 0 || ih <= 0 {
		return 0
	}
	intersection := iw * ih

	areaA := (a.x2 - a.x1) * (a.y2 - a.y1)
	areaB := (b.x2 - b.x1) * (b.y2 - b.y1)
	union := areaA + areaB - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}
