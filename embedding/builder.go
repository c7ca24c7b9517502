package embedding

import (
	"fmt"

	"github.com/RyanBlaney/sonido-embed/algorithms/common"
	"github.com/RyanBlaney/sonido-embed/algorithms/stats"
)

// Vector is a timbral embedding; every component lies in [0, 1]
type Vector []float64

// Segment is a contiguous range of a Vector
type Segment struct {
	Offset int `json:"offset"`
	Length int `json:"length"`
}

// Slice returns the part of v covered by s
func (s Segment) Slice(v Vector) []float64 {
	return v[s.Offset : s.Offset+s.Length]
}

// Layout documents the canonical order of an embedding
type Layout struct {
	MFCCMean     Segment `json:"mfcc_mean"`
	MFCCStd      Segment `json:"mfcc_std"`
	ContrastMean Segment `json:"contrast_mean"`
	ContrastStd  Segment `json:"contrast_std"`
	Dimension    int     `json:"dimension"`
	Version      string  `json:"version"`
}

// Build concatenates the independently normalized statistics in the order
// mfcc mean, mfcc std, contrast mean, contrast std.
func Build(mfcc, contrast *stats.AggregatedStats) (Vector, error) {
	if mfcc == nil || contrast == nil {
		return nil, fmt.Errorf("missing feature statistics")
	}
	if len(mfcc.Mean) != len(mfcc.Std) || len(contrast.Mean) != len(contrast.Std) {
		return nil, fmt.Errorf("mean and std lengths differ")
	}

	out := make(Vector, 0, 2*mfcc.Len()+2*contrast.Len())
	for _, part := range [][]float64{mfcc.Mean, mfcc.Std, contrast.Mean, contrast.Std} {
		out = append(out, common.MinMaxNormalize(part)...)
	}
	return out, nil
}

// Float32 converts v for stores that keep single precision vectors
func (v Vector) Float32() []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
