package ice

import (
	"sort"

	"screenlink/internal/core/domain"
)

// PairPriority computes the RFC 8445 candidate-pair priority. The
// controlling side's candidate priority is G, the controlled side's D.
func PairPriority(local, remote uint32, controlling bool) uint64 {
	g, d := uint64(remote), uint64(local)
	if controlling {
		g, d = uint64(local), uint64(remote)
	}

	min, max := g, d
	if d < g {
		min, max = d, g
	}
	var tiebreak uint64
	if g > d {
		tiebreak = 1
	}
	return (1<<32)*min + 2*max + tiebreak
}

// BestPair picks the winning pair among the confirmed ones. The rule is
// deterministic for a given input: highest combined pair priority wins,
// ties go to the lowest measured round trip, then to the pair confirmed
// first, then to input order.
func BestPair(pairs []domain.CandidatePair, controlling bool) (domain.CandidatePair, bool) {
	if len(pairs) == 0 {
		return domain.CandidatePair{}, false
	}

	ranked := make([]int, len(pairs))
	for i := range ranked {
		ranked[i] = i
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		pa, pb := pairs[ranked[a]], pairs[ranked[b]]
		prioA := PairPriority(pa.Local.Priority, pa.Remote.Priority, controlling)
		prioB := PairPriority(pb.Local.Priority, pb.Remote.Priority, controlling)
		if prioA != prioB {
			return prioA > prioB
		}
		if pa.RTT != pb.RTT {
			// an unmeasured round trip (zero) never beats a measured one
			if pa.RTT == 0 {
				return false
			}
			if pb.RTT == 0 {
				return true
			}
			return pa.RTT < pb.RTT
		}
		if !pa.ConfirmedAt.Equal(pb.ConfirmedAt) {
			return pa.ConfirmedAt.Before(pb.ConfirmedAt)
		}
		return false
	})

	return pairs[ranked[0]], true
}
