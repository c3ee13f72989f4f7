package fixtures

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/penwyp/go-rhythm-fusion/internal/estimator"
)

// Onset is an extra attack placed on the activation curve.
type Onset struct {
	Time     float64
	Strength float64
}

// Track describes a synthetic click track and the estimates a beat tracker
// would report for it. Zero fields take the defaults of DefaultTrack.
type Track struct {
	Name             string
	Subdir           string
	BPM              float64
	BeatsPerBar      int
	Bars             int
	Offset           float64
	FPS              float64
	SampleRate       int
	BeatStrength     float64
	DownbeatStrength float64
	Onsets           []Onset

	// Audio also writes a 16-bit mono click WAV beside the estimates.
	Audio bool
	// OmitSampleRate leaves sampleRate out of the estimates document.
	OmitSampleRate bool
}

// DefaultTrack is two bars of 4/4 at 120 BPM starting at 0.5s.
func DefaultTrack(name string) Track {
	return Track{
		Name:             name,
		BPM:              120,
		BeatsPerBar:      4,
		Bars:             2,
		Offset:           0.5,
		FPS:              100,
		SampleRate:       44100,
		BeatStrength:     0.4,
		DownbeatStrength: 0.8,
	}
}

func (tr Track) withDefaults() Track {
	d := DefaultTrack(tr.Name)
	if tr.BPM == 0 {
		tr.BPM = d.BPM
	}
	if tr.BeatsPerBar == 0 {
		tr.BeatsPerBar = d.BeatsPerBar
	}
	if tr.Bars == 0 {
		tr.Bars = d.Bars
	}
	if tr.FPS == 0 {
		tr.FPS = d.FPS
	}
	if tr.SampleRate == 0 {
		tr.SampleRate = d.SampleRate
	}
	if tr.BeatStrength == 0 {
		tr.BeatStrength = d.BeatStrength
	}
	if tr.DownbeatStrength == 0 {
		tr.DownbeatStrength = d.DownbeatStrength
	}
	return tr
}

// BeatTimes returns the beat times of the track.
func (tr Track) BeatTimes() []float64 {
	tr = tr.withDefaults()
	period := 60 / tr.BPM
	n := tr.Bars * tr.BeatsPerBar
	times := make([]float64, n)
	for i := range times {
		times[i] = tr.Offset + float64(i)*period
	}
	return times
}

// Duration is the length of the rendered track: one second past the last event.
func (tr Track) Duration() float64 {
	last := 0.0
	for _, t := range tr.BeatTimes() {
		last = math.Max(last, t)
	}
	for _, o := range tr.Onsets {
		last = math.Max(last, o.Time)
	}
	return last + 1
}

// Estimates builds the estimates document for the track.
func (tr Track) Estimates() *estimator.Estimates {
	tr = tr.withDefaults()
	times := tr.BeatTimes()

	act := make([]float64, int(math.Ceil(tr.Duration()*tr.FPS)))
	put := func(t, v float64) {
		i := int(math.Round(t * tr.FPS))
		if i >= 0 && i < len(act) && v > act[i] {
			act[i] = v
		}
	}

	beats := make([][2]float64, len(times))
	for i, t := range times {
		pos := i%tr.BeatsPerBar + 1
		beats[i] = [2]float64{t, float64(pos)}
		if pos == 1 {
			put(t, tr.DownbeatStrength)
		} else {
			put(t, tr.BeatStrength)
		}
	}
	for _, o := range tr.Onsets {
		put(o.Time, o.Strength)
	}

	est := &estimator.Estimates{
		SampleRate: tr.SampleRate,
		FPS:        tr.FPS,
		Beats:      beats,
		Activation: act,
	}
	if tr.OmitSampleRate {
		est.SampleRate = 0
	}
	return est
}

// Generator writes tracks below a base directory
type Generator struct {
	baseDir string
}

func NewGenerator(baseDir string) *Generator {
	return &Generator{baseDir: baseDir}
}

// Write renders the track and returns the path to analyse: the WAV file when
// audio was requested, otherwise the estimates file.
func (g *Generator) Write(tr Track) (string, error) {
	tr = tr.withDefaults()
	dir := filepath.Join(g.baseDir, tr.Subdir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	sidecar := filepath.Join(dir, tr.Name+estimator.SidecarSuffix)
	if err := WriteEstimates(sidecar, tr.Estimates()); err != nil {
		return "", err
	}
	if !tr.Audio {
		return sidecar, nil
	}

	wavPath := filepath.Join(dir, tr.Name+".wav")
	if err := WriteClickWAV(wavPath, tr.SampleRate, tr.Duration(), tr.BeatTimes()); err != nil {
		return "", err
	}
	return wavPath, nil
}

// WriteEstimates stores an estimates document as JSON.
func WriteEstimates(path string, est *estimator.Estimates) error {
	data, err := sonic.Marshal(est)
	if err != nil {
		return fmt.Errorf("failed to encode estimates: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// WriteClickWAV writes a 16-bit mono WAV with a short decaying click at each time.
func WriteClickWAV(path string, sampleRate int, seconds float64, clicks []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	data := make([]int, int(seconds*float64(sampleRate)))
	clickLen := sampleRate / 200
	for _, t := range clicks {
		start := int(t * float64(sampleRate))
		for i := 0; i < clickLen && start+i < len(data); i++ {
			decay := 1 - float64(i)/float64(clickLen)
			data[start+i] = int(decay * 30000 * math.Sin(2*math.Pi*1000*float64(i)/float64(sampleRate)))
		}
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write audio: %w", err)
	}
	return enc.Close()
}
