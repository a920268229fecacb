package station_test

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wxtools/wxctl/internal/station"
)

// fakeLogger serves the logger line protocol over net.Pipe, one command per
// connection, from a canned reply table.
type fakeLogger struct {
	mu       sync.Mutex
	replies  map[string][]string
	requests []string
	dials    int
}

func (f *fakeLogger) dial(_ context.Context) (net.Conn, error) {
	f.mu.Lock()
	f.dials++
	f.mu.Unlock()

	client, server := net.Pipe()
	go f.serve(server)
	return client, nil
}

func (f *fakeLogger) serve(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return
	}
	command := strings.TrimRight(scanner.Text(), "\r")

	f.mu.Lock()
	f.requests = append(f.requests, command)
	replies, known := f.replies[command]
	f.mu.Unlock()

	if !known {
		fmt.Fprintf(conn, "ERROR:unknown command\r\n")
		return
	}
	for _, line := range replies {
		fmt.Fprintf(conn, "%s\r\n", line)
	}
}

func (f *fakeLogger) dialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dials
}

func (f *fakeLogger) sawRequest(command string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, request := range f.requests {
		if request == command {
			return true
		}
	}
	return false
}

func newTestClient(fake *fakeLogger, opts ...station.Option) *station.Client {
	opts = append([]station.Option{
		station.WithDialFunc(fake.dial),
		station.WithMaxRetries(0),
		station.WithTimeout(time.Second),
	}, opts...)
	return station.NewClient("test:8899", opts...)
}

func TestClient_Current(t *testing.T) {
	fake := &fakeLogger{replies: map[string][]string{
		"NOW": {"NOW,2026/08/24 10:05:00,21.3,55,23.1,40,1013.2,12.5,270,18.0,0.2,0.0"},
	}}
	client := newTestClient(fake)

	record, err := client.Current(context.Background())
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 8, 24, 10, 5, 0, 0, time.Local), record.Time)
	assert.InDelta(t, 21.3, record.OutTemp, 1e-9)
	assert.InDelta(t, 55.0, record.OutHumidity, 1e-9)
	assert.InDelta(t, 1013.2, record.Pressure, 1e-9)
	assert.InDelta(t, 270.0, record.WindDir, 1e-9)
}

func TestClient_Version(t *testing.T) {
	fake := &fakeLogger{replies: map[string][]string{
		"VERSION": {"VER,WXL-2000,1.14"},
	}}
	client := newTestClient(fake)

	model, firmware, err := client.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "WXL-2000", model)
	assert.Equal(t, "1.14", firmware)
}

func TestClient_History(t *testing.T) {
	fake := &fakeLogger{replies: map[string][]string{
		"DOWNLOAD=2": {
			"REC,2026/08/24 10:00:00,21.0,55,23.0,40,1013.0,10.0,270,15.0,0.0,0.0",
			"REC,2026/08/24 10:05:00,21.3,54,23.1,40,1013.2,12.5,265,18.0,0.2,0.0",
			"OK",
		},
	}}
	client := newTestClient(fake)

	records, err := client.History(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].Time.Before(records[1].Time))
}

func TestClient_HistorySince(t *testing.T) {
	memUsed := station.MemoryHeaderBytes + 100*station.RecordSlotBytes
	fake := &fakeLogger{replies: map[string][]string{
		"LOGINT=?":   {"LOGINT=5"},
		"MEM=?":      {fmt.Sprintf("MEM=%d/%d", memUsed, station.MemoryCapacityBytes)},
		"DOWNLOAD=13": {"OK"},
	}}
	client := newTestClient(fake)

	// 61 minutes at 5-minute interval rounds up to 13 records.
	_, err := client.HistorySince(context.Background(), 61)
	require.NoError(t, err)
	assert.True(t, fake.sawRequest("DOWNLOAD=13"))
}

func TestClient_HistorySince_CappedByMemory(t *testing.T) {
	memUsed := station.MemoryHeaderBytes + 4*station.RecordSlotBytes
	fake := &fakeLogger{replies: map[string][]string{
		"LOGINT=?":   {"LOGINT=5"},
		"MEM=?":      {fmt.Sprintf("MEM=%d/%d", memUsed, station.MemoryCapacityBytes)},
		"DOWNLOAD=4": {"OK"},
	}}
	client := newTestClient(fake)

	_, err := client.HistorySince(context.Background(), 600)
	require.NoError(t, err)
	assert.True(t, fake.sawRequest("DOWNLOAD=4"), "request must be capped at the 4 stored records")
}

func TestClient_SetClock(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.Local)
	fake := &fakeLogger{replies: map[string][]string{
		"TIME=2026/08/24 12:00:00": {"TIME=2026/08/24 12:00:00"},
	}}
	client := newTestClient(fake, station.WithClock(clockwork.NewFakeClockAt(now)))

	set, err := client.SetClock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, now, set)
}

func TestClient_ClockSkew(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.Local)
	fake := &fakeLogger{replies: map[string][]string{
		"TIME=?": {"TIME=2026/08/24 12:01:30"},
	}}
	client := newTestClient(fake, station.WithClock(clockwork.NewFakeClockAt(now)))

	deviceTime, skew, err := client.Clock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, now.Add(90*time.Second), deviceTime)
	assert.Equal(t, 90*time.Second, skew)
}

func TestClient_SetIntervalValidation(t *testing.T) {
	fake := &fakeLogger{replies: map[string][]string{
		"LOGINT=15": {"LOGINT=15"},
	}}
	client := newTestClient(fake)

	require.NoError(t, client.SetInterval(context.Background(), 15))

	err := client.SetInterval(context.Background(), 7)
	require.Error(t, err)
	assert.False(t, fake.sawRequest("LOGINT=7"), "invalid interval must not reach the logger")
}

func TestClient_SetChannelValidation(t *testing.T) {
	fake := &fakeLogger{replies: map[string][]string{
		"STATION=3": {"STATION=3"},
	}}
	client := newTestClient(fake)

	require.NoError(t, client.SetChannel(context.Background(), 3))
	assert.Error(t, client.SetChannel(context.Background(), 4))
	assert.Error(t, client.SetChannel(context.Background(), -1))
}

func TestClient_SetUnitsValidation(t *testing.T) {
	fake := &fakeLogger{replies: map[string][]string{
		"UNITS=ENGLISH": {"UNITS=ENGLISH"},
	}}
	client := newTestClient(fake)

	require.NoError(t, client.SetUnits(context.Background(), "english"))
	assert.Error(t, client.SetUnits(context.Background(), "IMPERIAL"))
}

func TestClient_Extremes(t *testing.T) {
	fake := &fakeLogger{replies: map[string][]string{
		"MAX=?": {
			"MAX,TEMP OUT,32.1,2026/07/01 15:35:00",
			"MAX,WIND GUST,64.3,2026/06/12 09:10:00",
			"OK",
		},
		"MAX=RESET": {"OK"},
	}}
	client := newTestClient(fake)

	extremes, err := client.Max(context.Background())
	require.NoError(t, err)
	require.Len(t, extremes, 2)
	assert.Equal(t, "TEMP OUT", extremes[0].Observation)
	assert.InDelta(t, 32.1, extremes[0].Value, 1e-9)

	require.NoError(t, client.ResetMax(context.Background()))
}

func TestClient_DeviceErrorIsNotRetried(t *testing.T) {
	fake := &fakeLogger{replies: map[string][]string{}}
	client := newTestClient(fake, station.WithMaxRetries(3))

	_, err := client.Memory(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
	assert.Equal(t, 1, fake.dialCount(), "device-reported errors must not be retried")
}

func TestClient_TransportErrorIsRetried(t *testing.T) {
	fake := &fakeLogger{replies: map[string][]string{
		"MEM=?": {fmt.Sprintf("MEM=%d/%d", station.MemoryHeaderBytes, station.MemoryCapacityBytes)},
	}}

	failures := 0
	flakyDial := func(ctx context.Context) (net.Conn, error) {
		if failures < 1 {
			failures++
			return nil, errors.New("connection refused")
		}
		return fake.dial(ctx)
	}

	client := station.NewClient("test:8899",
		station.WithDialFunc(flakyDial),
		station.WithMaxRetries(2),
		station.WithTimeout(time.Second))

	memory, err := client.Memory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, memory.Records())
}

func TestClient_Info(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.Local)
	memUsed := station.MemoryHeaderBytes + 2*station.RecordSlotBytes
	fake := &fakeLogger{replies: map[string][]string{
		"VERSION":  {"VER,WXL-2000,1.14"},
		"MEM=?":    {fmt.Sprintf("MEM=%d/%d", memUsed, station.MemoryCapacityBytes)},
		"LOGINT=?": {"LOGINT=5"},
		"UNITS=?":  {"UNITS=METRIC"},
		"STATION=?": {"STATION=1"},
		"TIME=?":   {"TIME=2026/08/24 12:00:10"},
	}}
	client := newTestClient(fake, station.WithClock(clockwork.NewFakeClockAt(now)))

	info, err := client.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "WXL-2000", info.Model)
	assert.Equal(t, 2, info.Memory.Records())
	assert.Equal(t, 5, info.Interval)
	assert.Equal(t, "METRIC", info.Units)
	assert.Equal(t, 1, info.Channel)
	assert.Equal(t, 10*time.Second, info.ClockSkew)
}
