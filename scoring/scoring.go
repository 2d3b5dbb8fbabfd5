// Package scoring is an in-process anomaly Scorer. Each row is scored by its
// largest absolute z-score across the feature columns.
package scoring

import (
	"context"
	"fmt"
	"math"

	qg "github.com/meikuraledutech/querygraph"
)

// DefaultThreshold flags rows more than three standard deviations out.
const DefaultThreshold = 3.0

// checkEvery is how many rows are scored between context checks.
const checkEvery = 256

// ZScore scores rows by standard score.
type ZScore struct {
	threshold float64
}

var _ qg.Scorer = (*ZScore)(nil)

// New returns a ZScore scorer. A non-positive threshold means DefaultThreshold.
func New(threshold float64) *ZScore {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &ZScore{threshold: threshold}
}

// Threshold returns the score above which a row is flagged.
func (z *ZScore) Threshold() float64 { return z.threshold }

// Score implements qg.Scorer. budget.Timeout bounds the run; PreferGPU has no
// effect here. Rows whose feature vector is shorter than the widest row are
// treated as missing those features.
func (z *ZScore) Score(ctx context.Context, req qg.ScoreRequest, budget qg.Budget) (*qg.ScoreResult, error) {
	if len(req.RowKeys) != len(req.Features) {
		return nil, fmt.Errorf("querygraph: score: %d row keys for %d feature rows", len(req.RowKeys), len(req.Features))
	}
	if budget.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget.Timeout)
		defer cancel()
	}

	mean, std := columnStats(req.Features)

	res := &qg.ScoreResult{
		RowKeys: append([]string(nil), req.RowKeys...),
		Scores:  make([]float64, len(req.Features)),
		Flags:   make([]bool, len(req.Features)),
	}
	for i, row := range req.Features {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("querygraph: score: %w", err)
			}
		}
		var s float64
		for j, v := range row {
			if std[j] == 0 || math.IsNaN(v) {
				continue
			}
			s = math.Max(s, math.Abs(v-mean[j])/std[j])
		}
		res.Scores[i] = s
		res.Flags[i] = s > z.threshold
	}
	return res, nil
}

// columnStats returns the per-column mean and population standard deviation,
// skipping NaN cells.
func columnStats(rows [][]float64) (mean, std []float64) {
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	mean = make([]float64, width)
	std = make([]float64, width)
	count := make([]float64, width)

	for _, r := range rows {
		for j, v := range r {
			if math.IsNaN(v) {
				continue
			}
			mean[j] += v
			count[j]++
		}
	}
	for j := range mean {
		if count[j] > 0 {
			mean[j] /= count[j]
		}
	}
	for _, r := range rows {
		for j, v := range r {
			if math.IsNaN(v) {
				continue
			}
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		if count[j] > 0 {
			std[j] = math.Sqrt(std[j] / count[j])
		}
	}
	return mean, std
}
