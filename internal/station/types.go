package station

import (
	"fmt"
	"math"
	"time"

	"github.com/wxtools/wxctl/internal/models"
)

// Logger memory geometry. The logger stores records in a fixed 2MB region
// behind a header block; when the region is full it stops accepting new
// records until cleared.
const (
	MemoryCapacityBytes = 2 * 1024 * 1024
	MemoryHeaderBytes   = 1024
	RecordSlotBytes     = 64
)

// Archive intervals the logger accepts, in minutes.
var SupportedIntervals = []int{1, 5, 10, 15, 30, 60}

// RecordTimeLayout is the timestamp format used on the wire.
const RecordTimeLayout = "2006/01/02 15:04:05"

// HeaderColumns is the fixed column order of NOW and REC lines, after the
// leading tag.
var HeaderColumns = []string{
	"TIMESTAMP", "TEMP OUT", "HUM OUT", "TEMP IN", "HUM IN",
	"PRESSURE", "WIND SPD", "WIND DIR", "WIND GUST", "RAIN", "RAIN RATE",
}

// Record is one observation set as reported by the logger, in the logger's
// configured unit system.
type Record struct {
	Time        time.Time
	OutTemp     float64
	OutHumidity float64
	InTemp      float64
	InHumidity  float64
	Pressure    float64
	WindSpeed   float64
	WindDir     float64
	WindGust    float64
	Rain        float64
	RainRate    float64
}

// ToArchiveRecord converts a logger record into an archive record stamped
// with the given interval (seconds) and unit system.
func (r Record) ToArchiveRecord(interval int, unitSystem string) models.ArchiveRecord {
	record := models.ArchiveRecord{
		Timestamp:  r.Time.Unix(),
		Interval:   interval,
		UnitSystem: unitSystem,
	}
	record.SetObservation("outTemp", r.OutTemp)
	record.SetObservation("outHumidity", r.OutHumidity)
	record.SetObservation("inTemp", r.InTemp)
	record.SetObservation("inHumidity", r.InHumidity)
	record.SetObservation("pressure", r.Pressure)
	record.SetObservation("windSpeed", r.WindSpeed)
	record.SetObservation("windDir", r.WindDir)
	record.SetObservation("windGust", r.WindGust)
	record.SetObservation("rain", r.Rain)
	record.SetObservation("rainRate", r.RainRate)
	return record
}

// MemoryStatus is the logger's record memory usage.
type MemoryStatus struct {
	UsedBytes     int
	CapacityBytes int
}

// Records returns how many records the memory currently holds.
func (m MemoryStatus) Records() int {
	used := m.UsedBytes - MemoryHeaderBytes
	if used <= 0 {
		return 0
	}
	return used / RecordSlotBytes
}

// Full reports whether the logger has stopped accepting new records.
func (m MemoryStatus) Full() bool {
	return m.CapacityBytes-m.UsedBytes < RecordSlotBytes
}

// PercentFull returns memory usage rounded to one decimal.
func (m MemoryStatus) PercentFull() float64 {
	if m.CapacityBytes == 0 {
		return 0
	}
	return math.Round(float64(m.UsedBytes)/float64(m.CapacityBytes)*1000) / 10
}

// Extreme is one observation's recorded extreme and when it occurred.
type Extreme struct {
	Observation string
	Value       float64
	Time        time.Time
}

// Info is the summary printed by `wxctl station --info`.
type Info struct {
	Model     string
	Firmware  string
	Memory    MemoryStatus
	Interval  int
	Units     string
	Channel   int
	Clock     time.Time
	ClockSkew time.Duration
}

func (i Info) String() string {
	return fmt.Sprintf(
		"Model: %s\nFirmware: %s\nMemory: %d/%d bytes (%.1f%%, %d records)\nInterval: %d min\nUnits: %s\nChannel: %d\nClock: %s (skew %s)",
		i.Model, i.Firmware,
		i.Memory.UsedBytes, i.Memory.CapacityBytes, i.Memory.PercentFull(), i.Memory.Records(),
		i.Interval, i.Units, i.Channel,
		i.Clock.Format(RecordTimeLayout), i.ClockSkew.Round(time.Second),
	)
}
