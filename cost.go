package anyprof

import (
	"fmt"
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
	"gonum.org/v1/gonum/stat"
)

const correlationEpsilon = 1e-7

// MAE computes the mean absolute error of each output.
type MAE struct{}

// Cost computes, for each output, the mean absolute
// distance between the actual and desired values.
func (m MAE) Cost(desired, actual anydiff.Res, n int) anydiff.Res {
	c := actual.Output().Creator()
	diff := anydiff.Sub(actual, desired)
	abs := anydiff.Pool(diff, func(diff anydiff.Res) anydiff.Res {
		return anydiff.Add(
			anydiff.ClipPos(diff),
			anydiff.ClipPos(anydiff.Scale(diff, c.MakeNumeric(-1))),
		)
	})
	numComps := abs.Output().Len() / n
	sum := anydiff.SumCols(&anydiff.Matrix{
		Data: abs,
		Rows: n,
		Cols: numComps,
	})
	return anydiff.Scale(sum, c.MakeNumeric(1/float64(numComps)))
}

// MAECor adds one minus the Pearson correlation of the
// whole batch to the MAE of each output.
//
// Averaged over a batch, this is mae + 1 - r.
type MAECor struct{}

// Cost computes the combined cost.
func (m MAECor) Cost(desired, actual anydiff.Res, n int) anydiff.Res {
	return anydiff.Pool(actual, func(actual anydiff.Res) anydiff.Res {
		c := actual.Output().Creator()
		mae := MAE{}.Cost(desired, actual, n)
		r := Pearson(desired, actual)
		oneMinus := anydiff.AddScalar(anydiff.Scale(r, c.MakeNumeric(-1)), c.MakeNumeric(1))
		return anydiff.AddRepeated(mae, oneMinus)
	})
}

// Pearson computes a differentiable correlation between
// all the components of two vectors.
// The result has one component.
func Pearson(desired, actual anydiff.Res) anydiff.Res {
	c := actual.Output().Creator()
	x := center(actual)
	y := center(desired)
	return anydiff.Pool(x, func(x anydiff.Res) anydiff.Res {
		return anydiff.Pool(y, func(y anydiff.Res) anydiff.Res {
			cov := anydiff.Sum(anydiff.Mul(x, y))
			norms := anydiff.Mul(anydiff.Sum(anydiff.Square(x)), anydiff.Sum(anydiff.Square(y)))
			norms = anydiff.AddScalar(norms, c.MakeNumeric(correlationEpsilon))
			return anydiff.Mul(cov, anydiff.Pow(norms, c.MakeNumeric(-0.5)))
		})
	})
}

func center(v anydiff.Res) anydiff.Res {
	c := v.Output().Creator()
	return anydiff.Pool(v, func(v anydiff.Res) anydiff.Res {
		mean := anydiff.Scale(anydiff.Sum(v), c.MakeNumeric(-1/float64(v.Output().Len())))
		return anydiff.AddRepeated(v, mean)
	})
}

// Correlation computes the Pearson correlation between
// two vectors.
// It is 0 when either vector is constant.
func Correlation(desired, actual anyvec.Vector) float64 {
	r := stat.Correlation(Float64s(desired), Float64s(actual), nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}

// MeanAbsError computes the mean absolute difference
// between two vectors.
func MeanAbsError(desired, actual anyvec.Vector) float64 {
	x, y := Float64s(desired), Float64s(actual)
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for i, a := range x {
		sum += math.Abs(a - y[i])
	}
	return sum / float64(len(x))
}

// Float64s copies a vector's components into a slice.
func Float64s(v anyvec.Vector) []float64 {
	switch data := v.Data().(type) {
	case []float32:
		res := make([]float64, len(data))
		for i, x := range data {
			res[i] = float64(x)
		}
		return res
	case []float64:
		return append([]float64{}, data...)
	default:
		panic(fmt.Sprintf("unsupported numeric list: %T", data))
	}
}

var (
	_ anynet.Cost = MAE{}
	_ anynet.Cost = MAECor{}
)
