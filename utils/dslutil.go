package utils

import (
	"errors"
	"fmt"

	C "drape.com/drape/cloth"
	V "drape.com/drape/vector"
)

var ErrBufferSize = errors.New("vertex buffer too small")

//Positional Data Transfer into a flat xyz float buffer in lattice row major order.
//This is the layout the GL vertex buffer and the stream state message expect
func TransferPositionData(dst []float32, posArray []V.Vec32) error {
	count := len(posArray)
	if len(dst) < count*3 {
		return fmt.Errorf("%w: need %d floats for %d positions, have %d", ErrBufferSize, count*3, count, len(dst))
	}

	for i, p := range posArray {
		dst[i*3] = p[0]
		dst[i*3+1] = p[1]
		dst[i*3+2] = p[2]
	}

	return nil
}

//Flatten returns positions as xyz floats, growing dst when needed
func Flatten(dst []float32, posArray []V.Vec32) []float32 {
	n := len(posArray) * 3
	if cap(dst) < n {
		dst = make([]float32, n)
	}
	dst = dst[:n]
	_ = TransferPositionData(dst, posArray) //sized above
	return dst
}

//EdgeIndices writes an index pair per constraint for line drawing
func EdgeIndices(dst []uint32, cons []C.Constraint) []uint32 {
	dst = dst[:0]
	for _, c := range cons {
		dst = append(dst, uint32(c.A), uint32(c.B))
	}
	return dst
}

//SegmentVertices appends both endpoints of every cut segment as xyz floats
func SegmentVertices(dst []float32, segs []C.Segment) []float32 {
	for _, s := range segs {
		dst = append(dst, s.From[0], s.From[1], s.From[2], s.To[0], s.To[1], s.To[2])
	}
	return dst
}

//Bounds returns the min and max corners of the position set
func Bounds(pos []V.Vec32) (V.Vec32, V.Vec32) {
	if len(pos) == 0 {
		return V.Vec32{}, V.Vec32{}
	}
	lo, hi := pos[0], pos[0]
	for _, p := range pos[1:] {
		for k := 0; k < 3; k++ {
			if p[k] < lo[k] {
				lo[k] = p[k]
			}
			if p[k] > hi[k] {
				hi[k] = p[k]
			}
		}
	}
	return lo, hi
}
