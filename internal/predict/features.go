package predict

import (
	"github.com/fieldforce/dispatchopt/internal/domain"
	"github.com/fieldforce/dispatchopt/internal/geo"
)

// FeatureBuilder turns a (dispatch, technician) candidate pair into the
// domain.Features the predictors consume. It carries the learned
// per-technician and per-city aggregates (mean duration, job frequency)
// that a bare candidate pair cannot know on its own — a "learn once, build
// features many times" split between trained statistics and per-request
// feature assembly. The duration mean is a plain mean over every learned
// row, not an expanding one: a training row built after Learn sees a mean
// that includes its own duration.
type FeatureBuilder struct {
	skill domain.SkillScorer

	techMeanDuration map[string]*runningMean
	cityJobCount     map[string]int
	totalJobs        int
}

type runningMean struct {
	n   int
	sum float64
}

func (r *runningMean) add(v float64) {
	r.n++
	r.sum += v
}

func (r *runningMean) mean(fallback float64) float64 {
	if r.n == 0 {
		return fallback
	}
	return r.sum / float64(r.n)
}

// NewFeatureBuilder returns an untrained builder; Build falls back to
// dataset-wide defaults until Learn has been called.
func NewFeatureBuilder(skill domain.SkillScorer) *FeatureBuilder {
	return &FeatureBuilder{
		skill:            skill,
		techMeanDuration: make(map[string]*runningMean),
		cityJobCount:     make(map[string]int),
	}
}

// Learn folds historical dispatches into the per-technician duration
// average and per-city job frequency used by Build.
func (b *FeatureBuilder) Learn(history []domain.HistoricalDispatch) {
	for _, h := range history {
		if h.AssignedTechnicianID != nil && *h.AssignedTechnicianID != "" && h.ActualDurationMin > 0 {
			techID := *h.AssignedTechnicianID
			rm, ok := b.techMeanDuration[techID]
			if !ok {
				rm = &runningMean{}
				b.techMeanDuration[techID] = rm
			}
			rm.add(h.ActualDurationMin)
		}
		if h.City != "" {
			b.cityJobCount[h.City]++
		}
		b.totalJobs++
	}
}

// globalMeanDuration is the fallback for technicians with no history.
func (b *FeatureBuilder) globalMeanDuration() float64 {
	var sum float64
	var n int
	for _, rm := range b.techMeanDuration {
		sum += rm.sum
		n += rm.n
	}
	if n == 0 {
		return 90 // a conservative default service-call length, minutes
	}
	return sum / float64(n)
}

// Build computes the feature vector for one (dispatch, technician)
// candidate pair. distance is supplied pre-computed since callers already
// have it from geo.Distance for filtering purposes.
func (b *FeatureBuilder) Build(d domain.Dispatch, t domain.Technician, distance geo.Result, workloadRatioAfter float64) domain.Features {
	skillScore := b.skill.Score(d.RequiredSkill, t.PrimarySkill)

	distanceKM := 0.0
	if distance.Known {
		distanceKM = distance.KM
	}

	hour := d.AppointmentStart.Hour()
	weekday := int(d.AppointmentStart.Weekday())
	isWeekend := weekday == 0 || weekday == 6

	techMean := b.globalMeanDuration()
	if rm, ok := b.techMeanDuration[t.TechnicianID]; ok {
		techMean = rm.mean(techMean)
	}

	cityFreq := 0.0
	if b.totalJobs > 0 {
		cityFreq = float64(b.cityJobCount[d.City]) / float64(b.totalJobs)
	}

	equipmentFactor := 0.0
	if d.EquipmentInstalled {
		equipmentFactor = 1.0
	}
	firstTimeFixFactor := 0.0
	if d.FirstTimeFix {
		firstTimeFixFactor = 1.0
	}

	return domain.Features{
		TechnicianID:       t.TechnicianID,
		DistanceKM:         distanceKM,
		SkillMatchScore:    skillScore,
		WorkloadRatio:      workloadRatioAfter,
		HourOfDay:          hour,
		DayOfWeek:          weekday,
		IsWeekend:          isWeekend,
		FirstTimeFix:       d.FirstTimeFix,
		ServiceTier:        d.ServiceTier,
		EquipmentInstalled: d.EquipmentInstalled,
		Priority:           d.Priority,

		DistanceTimesEquipment:    distanceKM * equipmentFactor,
		DistanceTimesFirstTimeFix: distanceKM * firstTimeFixFactor,
		TechExpandingMeanDuration: techMean,
		CityJobFrequency:          cityFreq,
	}
}
