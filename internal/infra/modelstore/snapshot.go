package modelstore

import (
	"github.com/fieldforce/dispatchopt/internal/predict"
	"github.com/fieldforce/dispatchopt/internal/skillcompat"
)

// Capture assembles a Snapshot from a run's trained predictor state.
func Capture(table *skillcompat.Table, success *predict.LogisticModel, duration *predict.LinearModel) Snapshot {
	return Snapshot{
		SkillCompat:     table.Entries(),
		SkillBaseline:   table.Baseline(),
		SuccessWeights:  success.Weights(),
		SuccessBias:     success.Bias(),
		DurationWeights: duration.Weights(),
		DurationBias:    duration.Bias(),
	}
}

// Restore rebuilds trained predictor state from a Snapshot, bypassing
// training entirely.
func Restore(snap Snapshot) (*skillcompat.Table, *predict.LogisticModel, *predict.LinearModel) {
	table := skillcompat.LoadEntries(snap.SkillCompat, snap.SkillBaseline)
	success := predict.LoadLogisticModel(snap.SuccessWeights, snap.SuccessBias)
	duration := predict.LoadLinearModel(snap.DurationWeights, snap.DurationBias)
	return table, success, duration
}
