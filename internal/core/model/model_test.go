package model

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind(t *testing.T) {
	for _, k := range []Kind{KindDownbeat, KindBeat, KindOnset} {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	_, err := ParseKind("tick")
	assert.ErrorIs(t, err, ErrInvalidParameter)

	assert.Less(t, KindDownbeat.Precedence(), KindBeat.Precedence())
	assert.Less(t, KindBeat.Precedence(), KindOnset.Precedence())
	assert.True(t, KindDownbeat.IsBeat())
	assert.False(t, KindOnset.IsBeat())
}

func TestBeatRecordIsDownbeat(t *testing.T) {
	assert.True(t, BeatRecord{Time: 1, Position: 1}.IsDownbeat())
	assert.True(t, BeatRecord{Time: 1, Position: 1.4}.IsDownbeat())
	assert.False(t, BeatRecord{Time: 1, Position: 2}.IsDownbeat())
}

func TestStrengthCurveAt(t *testing.T) {
	c := NewStrengthCurve([]float64{0.1, 0.2, 0.3}, 10)

	assert.Equal(t, 0.1, c.At(0))
	assert.Equal(t, 0.2, c.At(0.06))
	assert.Equal(t, 0.3, c.At(0.2))
	assert.Zero(t, c.At(0.3))
	assert.Zero(t, c.At(-0.1))
	assert.InDelta(t, 0.3, c.Duration(), 1e-12)

	var missing *StrengthCurve
	assert.Zero(t, missing.Len())
	assert.Zero(t, missing.At(1))
}

func TestSortChronological(t *testing.T) {
	events := []TimedEvent{
		{Time: 2, Kind: KindBeat, Seq: 0},
		{Time: 1, Kind: KindOnset, Seq: 1},
		{Time: 1, Kind: KindDownbeat, Seq: 0},
		{Time: 1, Kind: KindOnset, Seq: 0},
	}

	SortChronological(events)

	assert.True(t, Timeline(events).IsChronological())
	assert.Equal(t, KindDownbeat, events[0].Kind)
	assert.Equal(t, 0, events[1].Seq)
	assert.Equal(t, 1, events[2].Seq)
	assert.Equal(t, 2.0, events[3].Time)
}

func TestTimelineCounts(t *testing.T) {
	tl := Timeline{
		{Time: 0.5, Kind: KindDownbeat, Salient: true},
		{Time: 0.7, Kind: KindOnset, Salient: true},
		{Time: 1.0, Kind: KindBeat},
		{Time: 1.5, Kind: KindBeat, Salient: true},
	}

	assert.Equal(t, 2, tl.Count(KindBeat))
	assert.Equal(t, 3, tl.SalientCount())
	assert.Equal(t, 2, tl.SalientCount(KindDownbeat, KindBeat))
	assert.Equal(t, 1, tl.SalientCount(KindOnset))
}

func TestTimelineTempo(t *testing.T) {
	tl := Timeline{
		{Time: 0.5, Kind: KindDownbeat},
		{Time: 0.7, Kind: KindOnset},
		{Time: 1.0, Kind: KindBeat},
		{Time: 1.5, Kind: KindBeat},
		{Time: 2.5, Kind: KindDownbeat},
	}
	// intervals 0.5, 0.5, 1.0: the median ignores the gap
	assert.Equal(t, 120.0, tl.Tempo())

	assert.Zero(t, Timeline{{Time: 1, Kind: KindBeat}}.Tempo())
	assert.Zero(t, Timeline{}.Tempo())
}

func TestKindTextEncoding(t *testing.T) {
	in := []TimedEvent{
		{Time: 1.0, Kind: KindDownbeat},
		{Time: 1.2, Kind: KindOnset},
	}
	data, err := sonic.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Kind":"downbeat"`)
	assert.Contains(t, string(data), `"Kind":"onset"`)

	var out []TimedEvent
	require.NoError(t, sonic.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	_, err = Kind(7).MarshalText()
	assert.ErrorIs(t, err, ErrInvalidParameter)

	var k Kind
	assert.ErrorIs(t, k.UnmarshalText([]byte("tick")), ErrInvalidParameter)
}
