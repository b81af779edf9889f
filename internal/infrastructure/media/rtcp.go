package media

import "time"

// ntpEpochOffset is the difference between the NTP epoch (1900) and the
// Unix epoch (1970) in seconds.
const ntpEpochOffset = 2208988800

// ntpTime converts wall time to the 64-bit NTP format RTCP uses.
func ntpTime(t time.Time) uint64 {
	secs := uint64(t.Unix()) + ntpEpochOffset
	frac := uint64(t.Nanosecond()) * (1 << 32) / 1e9
	return secs<<32 | frac
}

// compactNTP is the middle 32 bits of the NTP timestamp, the form
// reception reports carry.
func compactNTP(ntp uint64) uint32 {
	return uint32(ntp >> 16)
}

// rttFromReport derives the round trip from a reception report: the
// time since the echoed sender report, minus the peer's holding delay
// (both in 1/65536 second units).
func rttFromReport(now time.Time, lastSR, delay uint32) time.Duration {
	nowCompact := compactNTP(ntpTime(now))
	elapsed := nowCompact - lastSR - delay
	if int32(elapsed) <= 0 {
		return 0
	}
	return time.Duration(elapsed) * time.Second / 65536
}

// isRTCP demuxes multiplexed RTP/RTCP by packet type: RTCP packet types
// occupy 200-207 in the second byte (RFC 5761).
func isRTCP(buf []byte) bool {
	return len(buf) >= 2 && buf[1] >= 200 && buf[1] <= 207
}
