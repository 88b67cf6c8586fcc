// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

// Float16 has no native arithmetic in Go, so the accumulating kernels get
// dedicated variants that compute in float32 and convert back per element.
// Move-only kernels stay generic, a copy needs no arithmetic.

import "github.com/x448/float16"

func addScaledFloat16(dst, src []float16.Float16, scale float32) {
	for ii, v := range src {
		dst[ii] = float16.Fromfloat32(dst[ii].Float32() + scale*v.Float32())
	}
}

func addToRowSliceFloat16(dst, src []float16.Float16, dstRows, srcRows, cols, startRow int) {
	for c := 0; c < cols; c++ {
		d := dst[c*dstRows+startRow : c*dstRows+startRow+srcRows]
		for r, v := range src[c*srcRows : (c+1)*srcRows] {
			d[r] = float16.Fromfloat32(d[r].Float32() + v.Float32())
		}
	}
}

func addRowSliceFloat16(dst, src []float16.Float16, dstRows, srcRows, cols, startRow int) {
	for c := 0; c < cols; c++ {
		d := dst[c*dstRows : (c+1)*dstRows]
		for r, v := range src[c*srcRows+startRow : c*srcRows+startRow+dstRows] {
			d[r] = float16.Fromfloat32(d[r].Float32() + v.Float32())
		}
	}
}

func addRowRepeatSumFloat16(dst, src []float16.Float16, dstRows, cols, numRepeats int) {
	srcRows := dstRows * numRepeats
	for c := 0; c < cols; c++ {
		d := dst[c*dstRows : (c+1)*dstRows]
		for j := 0; j < numRepeats; j++ {
			for r, v := range src[c*srcRows+j*dstRows : c*srcRows+(j+1)*dstRows] {
				d[r] = float16.Fromfloat32(d[r].Float32() + v.Float32())
			}
		}
	}
}

func shuffleScaleAndAddFloat16(keepWeight float32, a []float16.Float16, d, s, m, k, t int, scale float32, c []float16.Float16) {
	if keepWeight == 0 {
		for na, v := range a {
			c[shuffleIndex(na, d, s, m, k)] = float16.Fromfloat32(scale * v.Float32())
		}
		return
	}
	for na, v := range a {
		nb := shuffleIndex(na, d, s, m, k)
		c[nb] = float16.Fromfloat32(keepWeight*c[nb].Float32() + scale*v.Float32())
	}
}
