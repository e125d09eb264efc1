package services

import (
	"fmt"
	"log"
	"math"
	"sort"
	"strconv"

	"alfredoptarigan/competition-scorer/internal/models"
)

// Prediction pairs a submitted value with the answer-key value for one id.
type Prediction struct {
	ID        string
	Predicted string
	Actual    string
}

// Metric turns aligned predictions into a single score.
type Metric interface {
	Kind() models.ScoringMetric
	Compute(predictions []Prediction) (float64, error)
}

type metricFunc struct {
	kind    models.ScoringMetric
	compute func([]Prediction) (float64, error)
}

func (m metricFunc) Kind() models.ScoringMetric { return m.kind }

func (m metricFunc) Compute(predictions []Prediction) (float64, error) {
	if len(predictions) == 0 {
		return 0, nil
	}
	return m.compute(predictions)
}

var metrics = map[models.ScoringMetric]Metric{
	models.MetricF1Score:   metricFunc{models.MetricF1Score, macroF1},
	models.MetricAccuracy:  metricFunc{models.MetricAccuracy, accuracy},
	models.MetricPrecision: metricFunc{models.MetricPrecision, macroPrecision},
	models.MetricRecall:    metricFunc{models.MetricRecall, macroRecall},
	models.MetricMAE:       metricFunc{models.MetricMAE, meanAbsoluteError},
	models.MetricRMSE:      metricFunc{models.MetricRMSE, rootMeanSquaredError},
}

// ResolveMetric returns the calculator for kind. Unknown kinds resolve to F1
// and report ok=false so the caller can warn.
func ResolveMetric(kind models.ScoringMetric) (Metric, bool) {
	if m, ok := metrics[kind]; ok {
		return m, true
	}
	return metrics[models.MetricF1Score], false
}

// AlignByID pairs every submission row with the answer for the same id.
// Rows whose id is not in the answer key are dropped.
func AlignByID(submission, answer ParsedDataset) []Prediction {
	actual := answer.ValueByID()

	predictions := make([]Prediction, 0, submission.Len())
	for _, rec := range submission.Records {
		truth, ok := actual[rec.ID]
		if !ok {
			continue
		}
		predictions = append(predictions, Prediction{ID: rec.ID, Predicted: rec.Value, Actual: truth})
	}
	return predictions
}

// Score aligns both datasets and computes the requested metric.
func Score(submission, answer ParsedDataset, kind models.ScoringMetric) (float64, error) {
	metric, ok := ResolveMetric(kind)
	if !ok {
		log.Printf("⚠️  Unknown scoring metric %q, falling back to %s\n", kind, metric.Kind())
	}
	return metric.Compute(AlignByID(submission, answer))
}

func accuracy(predictions []Prediction) (float64, error) {
	correct := 0
	for _, p := range predictions {
		if p.Predicted == p.Actual {
			correct++
		}
	}
	return float64(correct) / float64(len(predictions)), nil
}

type classCounts struct {
	truePositive  int
	falsePositive int
	falseNegative int
}

// confusion counts per label over the union of predicted and actual labels.
func confusion(predictions []Prediction) map[string]*classCounts {
	counts := make(map[string]*classCounts)
	get := func(label string) *classCounts {
		c, ok := counts[label]
		if !ok {
			c = &classCounts{}
			counts[label] = c
		}
		return c
	}

	for _, p := range predictions {
		if p.Predicted == p.Actual {
			get(p.Actual).truePositive++
			continue
		}
		get(p.Predicted).falsePositive++
		get(p.Actual).falseNegative++
	}
	return counts
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func macroAverage(predictions []Prediction, perClass func(*classCounts) float64) float64 {
	counts := confusion(predictions)

	// Fixed summation order keeps the score bit-identical across runs.
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var sum float64
	for _, label := range labels {
		sum += perClass(counts[label])
	}
	return sum / float64(len(counts))
}

func macroPrecision(predictions []Prediction) (float64, error) {
	return macroAverage(predictions, func(c *classCounts) float64 {
		return ratio(c.truePositive, c.truePositive+c.falsePositive)
	}), nil
}

func macroRecall(predictions []Prediction) (float64, error) {
	return macroAverage(predictions, func(c *classCounts) float64 {
		return ratio(c.truePositive, c.truePositive+c.falseNegative)
	}), nil
}

// macroF1 uses 2TP / (2TP + FP + FN) per class, which is 0 when the class
// has no support and no predictions.
func macroF1(predictions []Prediction) (float64, error) {
	return macroAverage(predictions, func(c *classCounts) float64 {
		return ratio(2*c.truePositive, 2*c.truePositive+c.falsePositive+c.falseNegative)
	}), nil
}

func meanAbsoluteError(predictions []Prediction) (float64, error) {
	var sum float64
	for _, p := range predictions {
		diff, err := numericDiff(p)
		if err != nil {
			return 0, err
		}
		sum += math.Abs(diff)
	}
	return sum / float64(len(predictions)), nil
}

func rootMeanSquaredError(predictions []Prediction) (float64, error) {
	var sum float64
	for _, p := range predictions {
		diff, err := numericDiff(p)
		if err != nil {
			return 0, err
		}
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(predictions))), nil
}

func numericDiff(p Prediction) (float64, error) {
	predicted, err := parseNumber(p.Predicted)
	if err != nil {
		return 0, fmt.Errorf("%w: id %s: predicted value: %v", ErrScoring, p.ID, err)
	}
	actual, err := parseNumber(p.Actual)
	if err != nil {
		return 0, fmt.Errorf("%w: id %s: answer value: %v", ErrScoring, p.ID, err)
	}
	return predicted - actual, nil
}

func parseNumber(value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not numeric", value)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a finite number", value)
	}
	return f, nil
}
