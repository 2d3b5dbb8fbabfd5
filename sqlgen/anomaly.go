package sqlgen

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"

	qg "github.com/meikuraledutech/querygraph"
)

const (
	keyColumn   = "id"
	scoreColumn = "anomaly_score"
	flagColumn  = "is_anomaly"
)

func scoreAnomalies(ctx context.Context, res *qg.AnalysisResult, scorer qg.Scorer, budget qg.Budget) (*qg.AnalysisResult, error) {
	if scorer == nil {
		return nil, qg.ErrNoScorer
	}
	keys, features := FeatureMatrix(res.Rows, res.Schema)
	scores, err := scorer.Score(ctx, qg.ScoreRequest{RowKeys: keys, Features: features}, budget)
	if err != nil {
		return nil, err
	}
	res.Anomalies = scores

	// Scores are positional; keys may repeat when the id column does.
	rows := make([]map[string]any, len(res.Rows))
	for i, row := range res.Rows {
		out := make(map[string]any, len(row)+2)
		for k, v := range row {
			out[k] = v
		}
		if i < len(scores.Scores) {
			out[scoreColumn] = scores.Scores[i]
		}
		if i < len(scores.Flags) {
			out[flagColumn] = scores.Flags[i]
		}
		rows[i] = out
	}
	res.Rows = rows
	res.Schema = append(append([]qg.Column(nil), res.Schema...),
		qg.Column{Name: scoreColumn, Type: "DOUBLE"},
		qg.Column{Name: flagColumn, Type: "BOOLEAN"},
	)
	return res, nil
}

// FeatureMatrix extracts the numeric columns of rows as scoring features.
// Rows are keyed by their "id" column when present, else by position; the
// key column itself is never a feature.
func FeatureMatrix(rows []map[string]any, schema []qg.Column) ([]string, [][]float64) {
	cols := columnOrder(rows, schema)
	_, hasKey := columnSet(cols)[keyColumn]

	var numeric []string
	for _, c := range cols {
		if c == keyColumn || len(rows) == 0 {
			continue
		}
		ok := true
		for _, r := range rows {
			if _, isNum := toFloat(r[c]); !isNum {
				ok = false
				break
			}
		}
		if ok {
			numeric = append(numeric, c)
		}
	}

	keys := make([]string, len(rows))
	features := make([][]float64, len(rows))
	for i, r := range rows {
		if hasKey {
			keys[i] = keyText(r[keyColumn])
		} else {
			keys[i] = strconv.Itoa(i)
		}
		vec := make([]float64, len(numeric))
		for j, c := range numeric {
			vec[j], _ = toFloat(r[c])
		}
		features[i] = vec
	}
	return keys, features
}

func columnOrder(rows []map[string]any, schema []qg.Column) []string {
	if len(schema) > 0 {
		cols := make([]string, len(schema))
		for i, c := range schema {
			cols[i] = c.Name
		}
		return cols
	}
	if len(rows) == 0 {
		return nil
	}
	cols := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func columnSet(cols []string) map[string]struct{} {
	m := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		m[c] = struct{}{}
	}
	return m
}

func keyText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case nil:
		return ""
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(string(t), 64)
		return f, err == nil
	}
	return 0, false
}
