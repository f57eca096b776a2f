package los

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SensorSummary condenses one sensor's records over a run.
type SensorSummary struct {
	SensorID string `json:"sensor_id"`
	Name     string `json:"name"`
	Frames   int    `json:"frames"`

	MeanInterference   float64 `json:"mean_interference"`
	StdDevInterference float64 `json:"stddev_interference"`
	MaxInterference    float64 `json:"max_interference"`

	// LOSClearFraction is the share of (frame, other sensor) pairs with a
	// clear direct path. It is 1 when the sensor has no peers.
	LOSClearFraction float64 `json:"los_clear_fraction"`
}

// Summarize returns one summary per roster sensor, in roster order.
func Summarize(res *Result) []SensorSummary {
	if res == nil {
		return nil
	}
	out := make([]SensorSummary, 0, len(res.Sensors))
	for _, sensor := range res.Sensors {
		recs := res.Records[sensor.ID]
		sum := SensorSummary{
			SensorID:         sensor.ID,
			Name:             sensor.Label(),
			Frames:           len(recs),
			LOSClearFraction: 1,
		}
		if len(recs) == 0 {
			out = append(out, sum)
			continue
		}

		ratios := make([]float64, len(recs))
		clear, pairs := 0, 0
		for i, r := range recs {
			ratios[i] = r.InterferenceRatio
			for _, ok := range r.DirectLOS {
				pairs++
				if ok {
					clear++
				}
			}
		}

		sum.MeanInterference = stat.Mean(ratios, nil)
		if len(ratios) > 1 {
			sum.StdDevInterference = stat.StdDev(ratios, nil)
		}
		sum.MaxInterference = floats.Max(ratios)
		if pairs > 0 {
			sum.LOSClearFraction = float64(clear) / float64(pairs)
		}
		out = append(out, sum)
	}
	return out
}

// ClearFractionSeries returns, per frame, the share of clear direct paths
// for a sensor. Frames of a sensor without peers read 1.
func ClearFractionSeries(recs []FrameRecord) []float64 {
	out := make([]float64, len(recs))
	for i, r := range recs {
		if len(r.DirectLOS) == 0 {
			out[i] = 1
			continue
		}
		clear := 0
		for _, ok := range r.DirectLOS {
			if ok {
				clear++
			}
		}
		out[i] = float64(clear) / float64(len(r.DirectLOS))
	}
	return out
}

// InterferenceSeries returns the per-frame interference ratios of recs.
func InterferenceSeries(recs []FrameRecord) []float64 {
	out := make([]float64, len(recs))
	for i, r := range recs {
		out[i] = r.InterferenceRatio
	}
	return out
}
