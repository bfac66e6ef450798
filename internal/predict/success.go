package predict

import (
	"math"

	"github.com/fieldforce/dispatchopt/internal/domain"
	"github.com/fieldforce/dispatchopt/internal/infra/reliability"
)

// LogisticModel is a hand-rolled binary logistic regression: the corpus
// carries no gradient-boosting or general ML library (the original
// Python implementation's GBDT has no equivalent here), so C3's learned
// component is a linear model trained by batch gradient descent — the
// standard-library substitute, not a design preference.
type LogisticModel struct {
	weights []float64 // one per feature, in successFeatureVector order
	bias    float64
}

// successFeatureVector projects Features onto the fixed-order vector the
// logistic model trains and scores against.
func successFeatureVector(f domain.Features) []float64 {
	priorityScore := 0.0
	switch f.Priority {
	case domain.Critical:
		priorityScore = 1.0
	case domain.High:
		priorityScore = 0.66
	case domain.Normal:
		priorityScore = 0.33
	case domain.Low:
		priorityScore = 0.0
	}
	weekend := 0.0
	if f.IsWeekend {
		weekend = 1.0
	}
	firstTimeFix := 0.0
	if f.FirstTimeFix {
		firstTimeFix = 1.0
	}
	equipment := 0.0
	if f.EquipmentInstalled {
		equipment = 1.0
	}
	return []float64{
		f.DistanceKM / 100.0, // scaled to keep gradients well-conditioned
		f.SkillMatchScore,
		f.WorkloadRatio,
		float64(f.HourOfDay) / 24.0,
		weekend,
		firstTimeFix,
		equipment,
		priorityScore,
	}
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// NewLogisticModel initializes zero weights sized to the feature vector.
func NewLogisticModel() *LogisticModel {
	return &LogisticModel{weights: make([]float64, len(successFeatureVector(domain.Features{})))}
}

// predictRaw returns the model's sigmoid output for a feature vector.
func (m *LogisticModel) predictRaw(x []float64) float64 {
	z := m.bias
	for i, w := range m.weights {
		if i < len(x) {
			z += w * x[i]
		}
	}
	return sigmoid(z)
}

// Weights returns a copy of the model's trained coefficients, in
// successFeatureVector order, for internal/infra/modelstore persistence.
func (m *LogisticModel) Weights() []float64 {
	return append([]float64(nil), m.weights...)
}

// Bias returns the model's trained intercept term.
func (m *LogisticModel) Bias() float64 {
	return m.bias
}

// LoadLogisticModel reconstructs a trained model from persisted
// coefficients (internal/infra/modelstore), bypassing Fit.
func LoadLogisticModel(weights []float64, bias float64) *LogisticModel {
	return &LogisticModel{weights: append([]float64(nil), weights...), bias: bias}
}

// TrainingExample is one (features, outcome) pair used to fit the model.
type TrainingExample struct {
	Features domain.Features
	Outcome  bool // whether the dispatch was productive
}

// LogisticTrainConfig controls batch gradient descent.
type LogisticTrainConfig struct {
	LearningRate float64
	Epochs       int
	L2           float64 // ridge penalty, guards against overfitting on small history
}

// DefaultLogisticTrainConfig returns sane defaults for a few thousand rows.
func DefaultLogisticTrainConfig() LogisticTrainConfig {
	return LogisticTrainConfig{LearningRate: 0.1, Epochs: 300, L2: 0.001}
}

// Fit trains the model in place via full-batch gradient descent on the
// binary cross-entropy loss. Returns domain.ErrTrainingInsufficientData if
// there are too few examples to fit a stable model.
func (m *LogisticModel) Fit(examples []TrainingExample, cfg LogisticTrainConfig) error {
	if len(examples) < 10 {
		return domain.ErrTrainingInsufficientData
	}
	n := float64(len(examples))
	vectors := make([][]float64, len(examples))
	labels := make([]float64, len(examples))
	for i, ex := range examples {
		vectors[i] = successFeatureVector(ex.Features)
		if ex.Outcome {
			labels[i] = 1.0
		}
	}

	dim := len(m.weights)
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		gradW := make([]float64, dim)
		var gradB float64
		for i, x := range vectors {
			pred := m.predictRaw(x)
			errTerm := pred - labels[i]
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

// Predictor is the full C3 success predictor: the trained logistic model,
// blended with the rule-based estimate (RuleProbability) and calibrated by
// a technician's historical reliability score.
type Predictor struct {
	model       *LogisticModel
	ruleWeights RuleWeights
	reliability *reliability.Tracker

	// Hybrid blending: when Enabled, PredictSuccess mixes the model's raw
	// output with RuleProbability at RuleWeight (rule's share).
	HybridEnabled bool
	RuleWeight    float64
}

// NewPredictor wires a trained (or zero-value, untrained) model together
// with the rule-based fallback and reliability tracker.
func NewPredictor(model *LogisticModel, tracker *reliability.Tracker) *Predictor {
	if model == nil {
		model = NewLogisticModel()
	}
	if tracker == nil {
		tracker = reliability.New()
	}
	return &Predictor{
		model:       model,
		ruleWeights: DefaultRuleWeights(),
		reliability: tracker,
		RuleWeight:  0.3,
	}
}

// PredictSuccess implements domain.SuccessPredictor.
func (p *Predictor) PredictSuccess(f domain.Features) float64 {
	modelProb := p.model.predictRaw(successFeatureVector(f))

	prob := modelProb
	if p.HybridEnabled {
		ruleProb := RuleProbability(p.ruleWeights, f)
		prob = BlendProbabilities(modelProb, ruleProb, p.RuleWeight)
	}

	// Calibrate against the technician's own track record, when known.
	// s_t below 0.75 (the pivot at which the factor is exactly 1) pulls the
	// estimate down; above it lifts the estimate, bounded so a single
	// technician's history can shift but never override the other signals.
	if f.TechnicianID != "" && p.reliability.Known(f.TechnicianID) {
		st := p.reliability.Score(f.TechnicianID)
		prob = domain.Clip(prob*(0.7+0.3*st/0.75), 0, 1)
	}
	return domain.Clip(prob, 0, 1)
}

// Fit trains the underlying logistic model only; the reliability tracker
// is fed separately, through Reliability().
func (p *Predictor) Fit(examples []TrainingExample, cfg LogisticTrainConfig) error {
	return p.model.Fit(examples, cfg)
}

// Reliability exposes the tracker so callers (e.g. the run driver) can feed
// it historical outcomes before a run.
func (p *Predictor) Reliability() *reliability.Tracker {
	return p.reliability
}
