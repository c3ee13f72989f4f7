package estimator

import (
	"fmt"
	"io"
	"math"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-rhythm-fusion/internal/core/model"
)

// Estimates is the document exchanged with external inference backends:
//
//	{"sampleRate": 44100, "fps": 100, "beats": [[0.52, 1], [1.01, 2]], "activation": [0.01, ...]}
type Estimates struct {
	SampleRate int          `json:"sampleRate"`
	FPS        float64      `json:"fps"`
	Beats      [][2]float64 `json:"beats"`
	Activation []float64    `json:"activation,omitempty"`
}

// DecodeEstimates reads and validates an estimates document.
func DecodeEstimates(r io.Reader) (*Estimates, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseEstimates(data)
}

// ParseEstimates validates an estimates document held in memory.
func ParseEstimates(data []byte) (*Estimates, error) {
	var est Estimates
	if err := sonic.Unmarshal(data, &est); err != nil {
		return nil, fmt.Errorf("invalid estimates document: %w", err)
	}
	if err := est.Validate(); err != nil {
		return nil, err
	}
	return &est, nil
}

// Validate rejects documents a partial or broken estimator run would produce.
func (e *Estimates) Validate() error {
	if len(e.Activation) > 0 && e.FPS <= 0 {
		return fmt.Errorf("activation present but fps is %g", e.FPS)
	}
	prev := math.Inf(-1)
	for i, b := range e.Beats {
		if b[0] < 0 || math.IsNaN(b[0]) {
			return fmt.Errorf("beat %d has invalid time %g", i, b[0])
		}
		if b[0] < prev {
			return fmt.Errorf("beat %d at %gs is out of order", i, b[0])
		}
		if b[1] < 1 {
			return fmt.Errorf("beat %d has invalid position %g", i, b[1])
		}
		prev = b[0]
	}
	for i, v := range e.Activation {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("activation frame %d has invalid value %g", i, v)
		}
	}
	return nil
}

// BeatRecords converts the beat pairs.
func (e *Estimates) BeatRecords() []model.BeatRecord {
	records := make([]model.BeatRecord, len(e.Beats))
	for i, b := range e.Beats {
		records[i] = model.BeatRecord{Time: b[0], Position: b[1]}
	}
	return records
}

// Curve returns the activation curve, or nil when none was supplied.
func (e *Estimates) Curve() *model.StrengthCurve {
	if len(e.Activation) == 0 {
		return nil
	}
	return model.NewStrengthCurve(e.Activation, e.FPS)
}
