package ice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenlink/internal/core/domain"
)

func pair(localPrio, remotePrio uint32, rtt time.Duration, confirmed time.Time) domain.CandidatePair {
	return domain.CandidatePair{
		Local:       domain.Candidate{Address: "10.0.0.1", Priority: localPrio},
		Remote:      domain.Candidate{Address: "10.0.0.2", Priority: remotePrio},
		RTT:         rtt,
		ConfirmedAt: confirmed,
	}
}

func TestBestPairEmpty(t *testing.T) {
	_, ok := BestPair(nil, true)
	assert.False(t, ok)
}

func TestBestPairHighestPriorityWins(t *testing.T) {
	t0 := time.Now()
	pairs := []domain.CandidatePair{
		pair(100, 100, 5*time.Millisecond, t0),
		pair(2130706431, 2130706431, 50*time.Millisecond, t0.Add(time.Second)),
	}

	best, ok := BestPair(pairs, true)
	require.True(t, ok)
	assert.Equal(t, uint32(2130706431), best.Local.Priority)
}

func TestBestPairRTTBreaksTies(t *testing.T) {
	t0 := time.Now()
	fast := pair(100, 100, 2*time.Millisecond, t0.Add(time.Second))
	slow := pair(100, 100, 40*time.Millisecond, t0)

	best, ok := BestPair([]domain.CandidatePair{slow, fast}, true)
	require.True(t, ok)
	assert.Equal(t, fast.RTT, best.RTT)
}

func TestBestPairUnmeasuredRTTLoses(t *testing.T) {
	t0 := time.Now()
	measured := pair(100, 100, 40*time.Millisecond, t0.Add(time.Second))
	unmeasured := pair(100, 100, 0, t0)

	best, ok := BestPair([]domain.CandidatePair{unmeasured, measured}, false)
	require.True(t, ok)
	assert.Equal(t, measured.RTT, best.RTT)
}

func TestBestPairFirstConfirmedBreaksRemainingTies(t *testing.T) {
	t0 := time.Now()
	early := pair(100, 100, 10*time.Millisecond, t0)
	late := pair(100, 100, 10*time.Millisecond, t0.Add(time.Second))

	best, ok := BestPair([]domain.CandidatePair{late, early}, true)
	require.True(t, ok)
	assert.Equal(t, early.ConfirmedAt, best.ConfirmedAt)
}

func TestBestPairDeterministicAcrossOrderings(t *testing.T) {
	t0 := time.Now()
	pairs := []domain.CandidatePair{
		pair(100, 200, 10*time.Millisecond, t0),
		pair(200, 100, 10*time.Millisecond, t0),
		pair(150, 150, 10*time.Millisecond, t0),
	}
	reversed := []domain.CandidatePair{pairs[2], pairs[1], pairs[0]}

	a, ok := BestPair(pairs, true)
	require.True(t, ok)
	b, ok := BestPair(reversed, true)
	require.True(t, ok)
	assert.Equal(t, a, b)
}

func TestPairPrioritySymmetry(t *testing.T) {
	// both agents must agree on the pair ordering: the controlling
	// side's view of (local, remote) is the controlled side's mirrored
	assert.Equal(t,
		PairPriority(100, 200, true),
		PairPriority(200, 100, false),
	)
}
