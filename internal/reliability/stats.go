package reliability

import "math"

// #region stats
// Alpha is Cronbach's alpha for a respondents-by-items matrix using sample
// variances. Returns 0 when there are fewer than 2 items or 2 respondents, or
// when total scores do not vary.
func Alpha(m [][]float64) float64 {
	n, k := dims(m)
	if n < 2 || k < 2 {
		return 0
	}
	var itemVar float64
	for j := 0; j < k; j++ {
		itemVar += sampleVariance(column(m, j))
	}
	totalVar := sampleVariance(totals(m))
	if totalVar == 0 {
		return 0
	}
	return float64(k) / float64(k-1) * (1 - itemVar/totalVar)
}

// SplitHalf correlates odd- and even-position half scores and applies the
// Spearman-Brown correction.
func SplitHalf(m [][]float64) float64 {
	n, k := dims(m)
	if n < 2 || k < 2 {
		return 0
	}
	odd := make([]float64, n)
	even := make([]float64, n)
	for i, row := range m {
		for j, v := range row {
			if j%2 == 0 {
				odd[i] += v
			} else {
				even[i] += v
			}
		}
	}
	r := pearson(odd, even)
	if r <= -1 {
		return 0
	}
	return 2 * r / (1 + r)
}

// SEM is the standard error of measurement of the total score.
func SEM(m [][]float64, alpha float64) float64 {
	n, _ := dims(m)
	if n < 2 {
		return 0
	}
	a := math.Max(0, math.Min(1, alpha))
	return math.Sqrt(sampleVariance(totals(m))) * math.Sqrt(1-a)
}

func dims(m [][]float64) (n, k int) {
	if len(m) == 0 {
		return 0, 0
	}
	return len(m), len(m[0])
}

func column(m [][]float64, j int) []float64 {
	out := make([]float64, len(m))
	for i, row := range m {
		out[i] = row[j]
	}
	return out
}

func totals(m [][]float64) []float64 {
	out := make([]float64, len(m))
	for i, row := range m {
		for _, v := range row {
			out[i] += v
		}
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func sampleVariance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mu := mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - mu) * (x - mu)
	}
	return ss / float64(len(xs)-1)
}

func pearson(x, y []float64) float64 {
	mx, my := mean(x), mean(y)
	var sxy, sxx, syy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0
	}
	return sxy / math.Sqrt(sxx*syy)
}

// #endregion stats
