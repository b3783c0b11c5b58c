package mount

import (
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwheeler87/satmount/internal/protocol"
)

// scriptedTransport plays back canned replies keyed by the written command.
// An empty reply simulates a silent mount: Read returns (0, nil) the way
// tarm/serial does when its ReadTimeout expires.
type scriptedTransport struct {
	replies   map[string]string
	chunkSize int // bytes per Read; 0 means all at once
	writes    []string
	pending   []byte
	closed    bool
}

func (f *scriptedTransport) Write(p []byte) (int, error) {
	cmd := string(p)
	f.writes = append(f.writes, cmd)
	f.pending = append(f.pending, []byte(f.replies[cmd])...)
	return len(p), nil
}

func (f *scriptedTransport) Read(p []byte) (int, error) {
	if len(f.pending) == 0 {
		return 0, nil // read timeout
	}
	n := len(f.pending)
	if f.chunkSize > 0 && n > f.chunkSize {
		n = f.chunkSize
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, f.pending[:n])
	f.pending = f.pending[n:]
	return n, nil
}

func (f *scriptedTransport) Close() error {
	f.closed = true
	return nil
}

func newTestSession(ft *scriptedTransport) *Session {
	s := NewSession(Config{
		Port: "/dev/ttyUSB0",
		Baud: 9600,
		Open: func(string, int, time.Duration) (Transport, error) {
			return ft, nil
		},
		Logger: log.New(io.Discard, "", 0),
	})
	if err := s.Connect(); err != nil {
		panic(err)
	}
	return s
}

func TestConnectFailureLeavesDisconnected(t *testing.T) {
	s := NewSession(Config{
		Port: "/dev/ttyUSB9",
		Open: func(string, int, time.Duration) (Transport, error) {
			return nil, errors.New("no such device")
		},
		Logger: log.New(io.Discard, "", 0),
	})
	err := s.Connect()
	require.Error(t, err)
	assert.False(t, s.Connected())

	_, _, err = s.Position()
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestPosition(t *testing.T) {
	ft := &scriptedTransport{replies: map[string]string{
		":GR#": "05:16:22#",
		":GD#": "-23*30:00#",
	}}
	s := newTestSession(ft)

	ra, dec, err := s.Position()
	require.NoError(t, err)
	assert.InDelta(t, 5.0+16.0/60+22.0/3600, ra, 1e-9)
	assert.InDelta(t, -23.5, dec, 1e-9)
	assert.Equal(t, []string{":GR#", ":GD#"}, ft.writes)
}

func TestPositionSecondQueryFailure(t *testing.T) {
	ft := &scriptedTransport{replies: map[string]string{
		":GR#": "05:16:22#",
		":GD#": "garbage#",
	}}
	s := newTestSession(ft)

	_, _, err := s.Position()
	require.Error(t, err)
	var pe *protocol.ParseError
	assert.ErrorAs(t, err, &pe)
}

// A mount sitting just under the horizon reports a zero-degree altitude with
// only the sign distinguishing it from above; the decoded value must stay
// negative or the safety logic downstream sees the wrong side.
func TestAltAzJustBelowHorizon(t *testing.T) {
	ft := &scriptedTransport{replies: map[string]string{
		":GA#": "-00*30:00#",
		":GZ#": "135*00:00#",
	}}
	s := newTestSession(ft)

	alt, az, err := s.AltAz()
	require.NoError(t, err)
	assert.InDelta(t, -0.5, alt, 1e-9)
	assert.InDelta(t, 135.0, az, 1e-9)
}

func TestPartialReplyAccumulation(t *testing.T) {
	ft := &scriptedTransport{
		replies:   map[string]string{":GR#": "12:30:00#"},
		chunkSize: 3, // force accumulation across several reads
	}
	s := newTestSession(ft)

	raw, err := s.SendRaw(":GR#")
	require.NoError(t, err)
	assert.Equal(t, "12:30:00", raw)
}

func TestQueryTimeout(t *testing.T) {
	ft := &scriptedTransport{replies: map[string]string{}}
	s := newTestSession(ft)

	_, err := s.SendRaw(":GR#")
	assert.ErrorIs(t, err, ErrReadTimeout)
}

func TestGotoAccepted(t *testing.T) {
	ft := &scriptedTransport{replies: map[string]string{
		":Sr12:30:00#":  "1#",
		":Sd-23*30:00#": "1#",
		":MS#":          "0#",
	}}
	s := newTestSession(ft)

	result, err := s.Goto(12.5, -23.5)
	require.NoError(t, err)
	assert.Equal(t, protocol.GotoAccepted, result)

	slewing, _ := s.Flags()
	assert.True(t, slewing)
	assert.Equal(t, []string{":Sr12:30:00#", ":Sd-23*30:00#", ":MS#"}, ft.writes)
}

func TestGotoBelowHorizon(t *testing.T) {
	ft := &scriptedTransport{replies: map[string]string{
		":Sr06:00:00#":  "1#",
		":Sd+10*00:00#": "1#",
		":MS#":          "1#",
	}}
	s := newTestSession(ft)

	result, err := s.Goto(6, 10)
	require.NoError(t, err)
	assert.Equal(t, protocol.GotoBelowHorizon, result)

	slewing, _ := s.Flags()
	assert.False(t, slewing)
}

func TestGotoTargetRejected(t *testing.T) {
	ft := &scriptedTransport{replies: map[string]string{
		":Sr06:00:00#": "0#",
	}}
	s := newTestSession(ft)

	_, err := s.Goto(6, 10)
	assert.ErrorIs(t, err, ErrRejected)
}

func TestHomeSilentTimeoutIsSuccess(t *testing.T) {
	ft := &scriptedTransport{replies: map[string]string{}}
	s := newTestSession(ft)

	require.NoError(t, s.Home())
	require.NoError(t, s.Park())
	require.NoError(t, s.Unpark())
	assert.Equal(t, []string{":hC#", ":hP#", ":hR#"}, ft.writes)
}

func TestStatusComposesTwoQueries(t *testing.T) {
	ft := &scriptedTransport{replies: map[string]string{
		":GU#":  "NG#",
		":GAT#": "1#",
	}}
	s := newTestSession(ft)

	st, err := s.Status()
	require.NoError(t, err)
	assert.True(t, st.Tracking)
	assert.False(t, st.Slewing)
	assert.Equal(t, protocol.ModeEquatorial, st.Mode)

	slewing, tracking := s.Flags()
	assert.False(t, slewing)
	assert.True(t, tracking)
}

func TestSetTrackingUpdatesCache(t *testing.T) {
	ft := &scriptedTransport{replies: map[string]string{
		":Te#": "1#",
		":Td#": "1#",
	}}
	s := newTestSession(ft)

	require.NoError(t, s.SetTracking(true))
	_, tracking := s.Flags()
	assert.True(t, tracking)

	require.NoError(t, s.SetTracking(false))
	_, tracking = s.Flags()
	assert.False(t, tracking)
}

func TestSetSiteSendsBothCoordinates(t *testing.T) {
	ft := &scriptedTransport{replies: map[string]string{
		":St+42*30:00#":  "1#",
		":Sg-071*15:00#": "1#",
	}}
	s := newTestSession(ft)

	require.NoError(t, s.SetSite(42.5, -71.25))
	assert.Equal(t, []string{":St+42*30:00#", ":Sg-071*15:00#"}, ft.writes)
}

func TestSettingsSetters(t *testing.T) {
	ft := &scriptedTransport{replies: map[string]string{
		":Rg0.50#": "1#",
		":SB0#":    "1#",
		":STa1#":   "1#",
	}}
	s := newTestSession(ft)

	require.NoError(t, s.SetGuideRate(0.5))
	require.NoError(t, s.SetBuzzer(0))
	require.NoError(t, s.SetMeridianFlip(true))

	// Mode switches and alignment reset are unacknowledged commands.
	require.NoError(t, s.SetAltAzMode())
	require.NoError(t, s.SetEquatorialMode())
	require.NoError(t, s.ClearAlignment())
	assert.Equal(t, []string{":Rg0.50#", ":SB0#", ":STa1#", ":AA#", ":AP#", ":NSC#"}, ft.writes)
}

func TestGuidePulseValidatesBeforeIO(t *testing.T) {
	ft := &scriptedTransport{replies: map[string]string{}}
	s := newTestSession(ft)

	err := s.GuidePulse(protocol.East, 12000)
	require.Error(t, err)
	assert.Empty(t, ft.writes, "out-of-range pulse must not reach the wire")
}

func TestDisconnectStopsMotion(t *testing.T) {
	ft := &scriptedTransport{replies: map[string]string{}}
	s := newTestSession(ft)

	require.NoError(t, s.Disconnect())
	assert.True(t, ft.closed)
	assert.Equal(t, []string{":Q#"}, ft.writes)
	assert.False(t, s.Connected())

	// Idempotent.
	require.NoError(t, s.Disconnect())
}

func TestProbe(t *testing.T) {
	ft := &scriptedTransport{replies: map[string]string{
		":GVP#": "ZWO AM5#",
		":GV#":  "v1.13#",
	}}
	open := func(string, int, time.Duration) (Transport, error) { return ft, nil }

	r, err := Probe(open, "/dev/ttyUSB0", 9600, 50*time.Millisecond, log.New(io.Discard, "", 0))
	require.NoError(t, err)
	assert.Equal(t, "ZWO AM5", r.Model)
	assert.Equal(t, "v1.13", r.Firmware)
	assert.True(t, ft.closed)
}

func TestProbeRejectsUnknownDevice(t *testing.T) {
	ft := &scriptedTransport{replies: map[string]string{
		":GVP#": "GPS-MOUSE#",
	}}
	open := func(string, int, time.Duration) (Transport, error) { return ft, nil }

	_, err := Probe(open, "/dev/ttyUSB0", 9600, 50*time.Millisecond, log.New(io.Discard, "", 0))
	assert.Error(t, err)
}

func TestLikelyMountPorts(t *testing.T) {
	ports := []PortInfo{
		{Name: "/dev/ttyUSB0"},
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyACM1"},
		{Name: "COM3"},
		{Name: "/dev/serial0", VendorID: "10c4"},
		{Name: "/dev/random-thing"},
	}
	got := LikelyMountPorts(ports)
	require.Len(t, got, 4)
	assert.Equal(t, "/dev/ttyUSB0", got[0].Name)
	assert.Equal(t, "/dev/ttyACM1", got[1].Name)
	assert.Equal(t, "COM3", got[2].Name)
	assert.Equal(t, "/dev/serial0", got[3].Name)
}
