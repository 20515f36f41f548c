package calc

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/mohammed-shakir/survey-stats/internal/table"
)

// round rounds half to even at the given number of decimals.
func round(x float64, decimals int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	p := math.Pow(10, float64(decimals))
	return math.RoundToEven(x*p) / p
}

// meanStd renders "<mean> +/- st dev <std>".
func meanStd(mean, std float64, decimals int) string {
	return table.FormatNumber(round(mean, decimals)) + " +/- st dev " + table.FormatNumber(round(std, decimals))
}

// popMeanStd is the mean and population standard deviation; NaN for no data.
func popMeanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return math.NaN(), math.NaN()
	}
	return stat.PopMeanStdDev(xs, nil)
}

// sampleMeanStd uses the n-1 denominator; the deviation of one value is NaN.
func sampleMeanStd(xs []float64) (float64, float64) {
	switch len(xs) {
	case 0:
		return math.NaN(), math.NaN()
	case 1:
		return xs[0], math.NaN()
	}
	return stat.MeanStdDev(xs, nil)
}

func formatInt(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return table.FormatNumber(x)
	}
	return strconv.FormatFloat(math.RoundToEven(x), 'f', 0, 64)
}
