package amplicon

import (
	"math"

	"github.com/pkg/errors"
)

// Opts controls EstimateParallel.
type Opts struct {
	// Seed is the base random seed.  Worker i derives its own seed from Seed
	// and i.
	Seed int64
	// MinWindowLength is the minimum interval length.
	MinWindowLength int
	// MaxWindowLength is the maximum interval length.  0 means unbounded.
	MaxWindowLength int
	// MinDepth is the minimum read depth of a covered position.  Intervals
	// never include uncovered positions.
	MinDepth int
	// MaxRejections bounds the number of resamplings within one trial.  A
	// trial that exhausts it is rejected.
	MaxRejections int
	// FlankLength is the half-width of the reference stretch around a
	// boundary whose k-mer diversity is penalized.  0 means the k-mer length.
	FlankLength int

	// Score weights.
	CoverageWeight    float64
	DiversityWeight   float64
	WindowCountWeight float64
}

// DefaultOpts is the default Opts.
var DefaultOpts = Opts{
	Seed:              1,
	MinWindowLength:   200,
	MaxWindowLength:   0,
	MinDepth:          1,
	MaxRejections:     64,
	FlankLength:       0,
	CoverageWeight:    1.0,
	DiversityWeight:   2.0,
	WindowCountWeight: 0.25,
}

func validWeight(w float64) bool {
	return w >= 0 && !math.IsInf(w, 0) && !math.IsNaN(w)
}

func (o Opts) validate() error {
	switch {
	case o.MinWindowLength <= 0:
		return errors.Wrapf(ErrInvalidArgument, "min window length %d must be positive", o.MinWindowLength)
	case o.MaxWindowLength != 0 && o.MaxWindowLength < o.MinWindowLength:
		return errors.Wrapf(ErrInvalidArgument, "max window length %d is below the min window length %d",
			o.MaxWindowLength, o.MinWindowLength)
	case o.MinDepth <= 0:
		return errors.Wrapf(ErrInvalidArgument, "min depth %d must be positive", o.MinDepth)
	case o.MaxRejections <= 0:
		return errors.Wrapf(ErrInvalidArgument, "max rejections %d must be positive", o.MaxRejections)
	case o.FlankLength < 0:
		return errors.Wrapf(ErrInvalidArgument, "flank length %d is negative", o.FlankLength)
	case !validWeight(o.CoverageWeight) || !validWeight(o.DiversityWeight) || !validWeight(o.WindowCountWeight):
		return errors.Wrapf(ErrInvalidArgument, "score weights %v, %v, %v must be finite and non-negative",
			o.CoverageWeight, o.DiversityWeight, o.WindowCountWeight)
	}
	return nil
}
