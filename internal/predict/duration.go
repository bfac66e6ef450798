package predict

import (
	"math"
	"sort"

	"github.com/fieldforce/dispatchopt/internal/domain"
)

// LinearModel is an ordinary ridge-regularized linear regression, trained
// by batch gradient descent for the same reason LogisticModel is: no
// gradient-boosting library exists anywhere in the corpus, so the learned
// duration estimator is this standard-library linear model instead.
type LinearModel struct {
	weights []float64
	bias    float64
}

// durationFeatureVector projects Features onto the fixed-order vector the
// duration model trains and scores against. Distinct from
// successFeatureVector: duration cares about job-shape signals
// (equipment/first-time-fix interactions, historical tech/city norms) that
// success scoring does not need directly.
func durationFeatureVector(f domain.Features) []float64 {
	equipment := 0.0
	if f.EquipmentInstalled {
		equipment = 1.0
	}
	firstTimeFix := 0.0
	if f.FirstTimeFix {
		firstTimeFix = 1.0
	}
	return []float64{
		f.DistanceKM / 100.0,
		equipment,
		firstTimeFix,
		f.DistanceTimesEquipment / 100.0,
		f.DistanceTimesFirstTimeFix / 100.0,
		f.TechExpandingMeanDuration / 60.0,
		f.CityJobFrequency,
		f.SkillMatchScore,
	}
}

func NewLinearModel() *LinearModel {
	return &LinearModel{weights: make([]float64, len(durationFeatureVector(domain.Features{})))}
}

func (m *LinearModel) predictRaw(x []float64) float64 {
	y := m.bias
	for i, w := range m.weights {
		if i < len(x) {
			y += w * x[i]
		}
	}
	return y
}

// Weights returns a copy of the model's trained coefficients, in
// durationFeatureVector order, for internal/infra/modelstore persistence.
func (m *LinearModel) Weights() []float64 {
	return append([]float64(nil), m.weights...)
}

// Bias returns the model's trained intercept term.
func (m *LinearModel) Bias() float64 {
	return m.bias
}

// LoadLinearModel reconstructs a trained model from persisted coefficients
// (internal/infra/modelstore), bypassing Fit.
func LoadLinearModel(weights []float64, bias float64) *LinearModel {
	return &LinearModel{weights: append([]float64(nil), weights...), bias: bias}
}

// DurationTrainingExample is one (features, realized duration) pair.
type DurationTrainingExample struct {
	Features         domain.Features
	ActualDurationMin float64
}

// LinearTrainConfig controls gradient descent and the outlier filter.
type LinearTrainConfig struct {
	LearningRate float64
	Epochs       int
	L2           float64
	// ZScoreThreshold drops training rows whose duration deviates from the
	// dataset mean by more than this many standard deviations.
	ZScoreThreshold float64
}

func DefaultLinearTrainConfig() LinearTrainConfig {
	return LinearTrainConfig{LearningRate: 0.05, Epochs: 400, L2: 0.001, ZScoreThreshold: 3.0}
}

// dropDurationOutliers filters training rows more than threshold standard
// deviations from the mean actual duration, using Welford's single-pass
// mean/variance algorithm.
func dropDurationOutliers(examples []DurationTrainingExample, threshold float64) []DurationTrainingExample {
	if threshold <= 0 || len(examples) < 2 {
		return examples
	}
	var mean, m2 float64
	var n int
	for _, ex := range examples {
		n++
		delta := ex.ActualDurationMin - mean
		mean += delta / float64(n)
		delta2 := ex.ActualDurationMin - mean
		m2 += delta * delta2
	}
	variance := m2 / float64(n)
	stddev := math.Sqrt(variance)
	if stddev == 0 {
		return examples
	}

	kept := make([]DurationTrainingExample, 0, len(examples))
	for _, ex := range examples {
		z := math.Abs(ex.ActualDurationMin-mean) / stddev
		if z <= threshold {
			kept = append(kept, ex)
		}
	}
	if len(kept) == 0 {
		return examples // filter was too aggressive; keep the original set
	}
	return kept
}

// Fit trains the model in place, first dropping duration outliers, then
// running gradient descent to minimize mean squared error with an L2
// penalty.
func (m *LinearModel) Fit(examples []DurationTrainingExample, cfg LinearTrainConfig) error {
	examples = dropDurationOutliers(examples, cfg.ZScoreThreshold)
	if len(examples) < 10 {
		return domain.ErrTrainingInsufficientData
	}

	n := float64(len(examples))
	vectors := make([][]float64, len(examples))
	targets := make([]float64, len(examples))
	for i, ex := range examples {
		vectors[i] = durationFeatureVector(ex.Features)
		targets[i] = ex.ActualDurationMin
	}

	dim := len(m.weights)
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		gradW := make([]float64, dim)
		var gradB float64
		for i, x := range vectors {
			pred := m.predictRaw(x)
			errTerm := pred - targets[i]
			for j, xj := range x {
				gradW[j] += errTerm * xj
			}
			gradB += errTerm
		}
		for j := range m.weights {
			gradW[j] = gradW[j]/n + cfg.L2*m.weights[j]
			m.weights[j] -= cfg.LearningRate * gradW[j]
		}
		m.bias -= cfg.LearningRate * (gradB / n)
	}
	return nil
}

// crossValidateMAE runs k-fold cross validation and returns the mean
// absolute error of the given config across folds.
func crossValidateMAE(examples []DurationTrainingExample, cfg LinearTrainConfig, folds int) float64 {
	if folds < 2 || len(examples) < folds {
		folds = 2
	}
	foldSize := len(examples) / folds
	if foldSize == 0 {
		return math.Inf(1)
	}

	var totalErr float64
	var totalN int
	for k := 0; k < folds; k++ {
		start := k * foldSize
		end := start + foldSize
		if k == folds-1 {
			end = len(examples)
		}
		test := examples[start:end]
		train := make([]DurationTrainingExample, 0, len(examples)-len(test))
		train = append(train, examples[:start]...)
		train = append(train, examples[end:]...)
		if len(train) < 10 || len(test) == 0 {
			continue
		}

		m := NewLinearModel()
		if err := m.Fit(train, cfg); err != nil {
			continue
		}
		for _, ex := range test {
			pred := m.predictRaw(durationFeatureVector(ex.Features))
			totalErr += math.Abs(pred - ex.ActualDurationMin)
			totalN++
		}
	}
	if totalN == 0 {
		return math.Inf(1)
	}
	return totalErr / float64(totalN)
}

// durationHyperparamGrid is the small grid searched by FitWithGridSearch —
// enough to meaningfully trade off fit speed against regularization
// strength without an external hyperparameter-search library.
func durationHyperparamGrid() []LinearTrainConfig {
	var grid []LinearTrainConfig
	for _, lr := range []float64{0.02, 0.05, 0.1} {
		for _, l2 := range []float64{0.0001, 0.001, 0.01} {
			grid = append(grid, LinearTrainConfig{
				LearningRate:    lr,
				Epochs:          300,
				L2:              l2,
				ZScoreThreshold: 3.0,
			})
		}
	}
	return grid
}

// FitWithGridSearch selects the hyperparameter combination with the lowest
// cross-validated MAE, then refits the model on the full dataset with the
// winning config. Returns the chosen config for diagnostics/logging.
func (m *LinearModel) FitWithGridSearch(examples []DurationTrainingExample) (LinearTrainConfig, error) {
	if len(examples) < 10 {
		return LinearTrainConfig{}, domain.ErrTrainingInsufficientData
	}

	grid := durationHyperparamGrid()
	scores := make([]float64, len(grid))
	for i, cfg := range grid {
		scores[i] = crossValidateMAE(examples, cfg, 5)
	}

	best := 0
	for i := range grid {
		if scores[i] < scores[best] {
			best = i
		}
	}
	bestCfg := grid[best]
	if err := m.Fit(examples, bestCfg); err != nil {
		return bestCfg, err
	}
	return bestCfg, nil
}

// DurationPredictor wraps the trained linear model and applies the domain floor:
// no real dispatch takes less than a few minutes of a technician's time.
type DurationPredictor struct {
	model        *LinearModel
	minDurationMin float64
}

func NewDurationPredictor(model *LinearModel) *DurationPredictor {
	if model == nil {
		model = NewLinearModel()
	}
	return &DurationPredictor{model: model, minDurationMin: 15}
}

// PredictDuration implements domain.DurationPredictor.
func (p *DurationPredictor) PredictDuration(f domain.Features) float64 {
	pred := p.model.predictRaw(durationFeatureVector(f))
	if pred < p.minDurationMin {
		return p.minDurationMin
	}
	return pred
}

// Fit trains the underlying model with grid search over regularization and
// learning rate, as described in FitWithGridSearch.
func (p *DurationPredictor) Fit(examples []DurationTrainingExample) (LinearTrainConfig, error) {
	return p.model.FitWithGridSearch(examples)
}

// medianDuration is a small helper used by diagnostics to report a robust
// central tendency alongside the model's mean-based estimate.
func medianDuration(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
