package estimator

import (
	"context"
	"sync"

	"github.com/penwyp/go-rhythm-fusion/internal/core/model"
)

type loadFunc func(ctx context.Context, audioPath string, cfg BeatConfig) (*Estimates, error)

// memoBackend adapts a whole-document loader to the three capability
// interfaces, loading each audio file at most once.
type memoBackend struct {
	name  string
	cfg   BeatConfig
	load  loadFunc
	mu    sync.Mutex
	cache map[string]*Estimates
}

func newMemoBackend(name string, cfg BeatConfig, load loadFunc) *memoBackend {
	return &memoBackend{
		name:  name,
		cfg:   cfg,
		load:  load,
		cache: make(map[string]*Estimates),
	}
}

func (m *memoBackend) get(ctx context.Context, audioPath string, cfg BeatConfig) (*Estimates, error) {
	m.mu.Lock()
	if est, ok := m.cache[audioPath]; ok {
		m.mu.Unlock()
		return est, nil
	}
	m.mu.Unlock()

	est, err := m.load(ctx, audioPath, cfg)
	if err != nil {
		return nil, estimatorError(m.name, audioPath, err)
	}

	m.mu.Lock()
	m.cache[audioPath] = est
	m.mu.Unlock()
	return est, nil
}

func (m *memoBackend) TrackBeats(ctx context.Context, audioPath string, cfg BeatConfig) ([]model.BeatRecord, error) {
	est, err := m.get(ctx, audioPath, cfg)
	if err != nil {
		return nil, err
	}
	return est.BeatRecords(), nil
}

func (m *memoBackend) Activate(ctx context.Context, audioPath string, fps float64) (*model.StrengthCurve, error) {
	cfg := m.cfg
	cfg.FramesPerSecond = fps
	est, err := m.get(ctx, audioPath, cfg)
	if err != nil {
		return nil, err
	}
	return est.Curve(), nil
}

func (m *memoBackend) SampleRate(ctx context.Context, audioPath string) (int, error) {
	est, err := m.get(ctx, audioPath, m.cfg)
	if err != nil {
		return 0, err
	}
	return est.SampleRate, nil
}

func (m *memoBackend) Release(audioPath string) {
	m.mu.Lock()
	delete(m.cache, audioPath)
	m.mu.Unlock()
}
