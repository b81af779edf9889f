package media

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNTPRoundTrip(t *testing.T) {
	now := time.Now()
	ntp := ntpTime(now)
	secs := ntp >> 32
	assert.Equal(t, uint64(now.Unix())+ntpEpochOffset, secs)
}

func TestRTTFromReport(t *testing.T) {
	now := time.Now()
	// peer echoed an SR from 100ms ago and held it 40ms
	lastSR := compactNTP(ntpTime(now.Add(-100 * time.Millisecond)))
	delaySecs := 0.040
	delay := uint32(delaySecs * 65536)

	rtt := rttFromReport(now, lastSR, delay)
	assert.InDelta(t, 60*time.Millisecond, rtt, float64(5*time.Millisecond))
}

func TestRTTNeverNegative(t *testing.T) {
	now := time.Now()
	lastSR := compactNTP(ntpTime(now))
	assert.Zero(t, rttFromReport(now, lastSR, 65536))
}

func TestIsRTCPDemux(t *testing.T) {
	assert.True(t, isRTCP([]byte{0x80, 200, 0, 0}), "sender report")
	assert.True(t, isRTCP([]byte{0x80, 207, 0, 0}), "extended report")
	assert.False(t, isRTCP([]byte{0x80, 96, 0, 0}), "rtp, dynamic pt")
	assert.False(t, isRTCP([]byte{0x80, 96 | 0x80, 0, 0}), "rtp with marker")
	assert.False(t, isRTCP([]byte{0x80}), "short datagram")
}

func TestMaxLatePacketsBounds(t *testing.T) {
	assert.Equal(t, uint16(32), maxLatePackets(10*time.Millisecond, 5))
	assert.Equal(t, uint16(240), maxLatePackets(time.Second, 30))
	assert.Equal(t, uint16(2048), maxLatePackets(time.Minute, 60))
}
