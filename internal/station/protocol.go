package station

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// The logger speaks a line protocol over its serial bridge: CRLF-terminated
// ASCII commands. Queries take the form "X=?" and answer "X=value"; setters
// echo the value they applied; plain actions answer "OK". DOWNLOAD streams
// one "REC,..." line per stored record and terminates with "OK". Faults are
// reported as "ERROR:<message>".

const (
	cmdVersion     = "VERSION"
	cmdNow         = "NOW"
	cmdHeader      = "HEADER=?"
	cmdDownload    = "DOWNLOAD"
	cmdMemQuery    = "MEM=?"
	cmdMemClear    = "MEM=CLEAR"
	cmdTimeQuery   = "TIME=?"
	cmdIntQuery    = "LOGINT=?"
	cmdUnitsQuery  = "UNITS=?"
	cmdDSTQuery    = "DST=?"
	cmdChanQuery   = "STATION=?"
	cmdRainQuery   = "RAIN=?"
	cmdRainReset   = "RAIN=RESET"
	cmdMaxQuery    = "MAX=?"
	cmdMaxReset    = "MAX=RESET"
	cmdMinQuery    = "MIN=?"
	cmdMinReset    = "MIN=RESET"
	replyOK        = "OK"
	replyErrPrefix = "ERROR:"
)

// parseKeyValue extracts the value from a "KEY=value" reply.
func parseKeyValue(line, key string) (string, error) {
	prefix := key + "="
	if !strings.HasPrefix(line, prefix) {
		return "", fmt.Errorf("unexpected reply %q, want %q", line, prefix+"...")
	}
	return strings.TrimPrefix(line, prefix), nil
}

// parseMemory parses a "MEM=used/capacity" reply.
func parseMemory(line string) (MemoryStatus, error) {
	value, err := parseKeyValue(line, "MEM")
	if err != nil {
		return MemoryStatus{}, err
	}

	parts := strings.SplitN(value, "/", 2)
	if len(parts) != 2 {
		return MemoryStatus{}, fmt.Errorf("malformed memory reply %q", line)
	}

	used, err := strconv.Atoi(parts[0])
	if err != nil {
		return MemoryStatus{}, fmt.Errorf("malformed memory reply %q: %w", line, err)
	}
	capacity, err := strconv.Atoi(parts[1])
	if err != nil {
		return MemoryStatus{}, fmt.Errorf("malformed memory reply %q: %w", line, err)
	}

	return MemoryStatus{UsedBytes: used, CapacityBytes: capacity}, nil
}

// parseRecord parses a "NOW,..." or "REC,..." line into a Record. Fields
// follow HeaderColumns after the tag.
func parseRecord(line, tag string) (Record, error) {
	fields := strings.Split(line, ",")
	if len(fields) != len(HeaderColumns)+1 || fields[0] != tag {
		return Record{}, fmt.Errorf("malformed %s line %q", tag, line)
	}

	when, err := time.ParseInLocation(RecordTimeLayout, fields[1], time.Local)
	if err != nil {
		return Record{}, fmt.Errorf("malformed timestamp in %q: %w", line, err)
	}

	values := make([]float64, len(HeaderColumns)-1)
	for i := range values {
		values[i], err = strconv.ParseFloat(fields[i+2], 64)
		if err != nil {
			return Record{}, fmt.Errorf("malformed field %q in %q: %w", HeaderColumns[i+1], line, err)
		}
	}

	return Record{
		Time:        when,
		OutTemp:     values[0],
		OutHumidity: values[1],
		InTemp:      values[2],
		InHumidity:  values[3],
		Pressure:    values[4],
		WindSpeed:   values[5],
		WindDir:     values[6],
		WindGust:    values[7],
		Rain:        values[8],
		RainRate:    values[9],
	}, nil
}

// parseExtreme parses a "MAX,<col>,<value>,<time>" (or MIN) line.
func parseExtreme(line, tag string) (Extreme, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 4 || fields[0] != tag {
		return Extreme{}, fmt.Errorf("malformed %s line %q", tag, line)
	}

	value, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return Extreme{}, fmt.Errorf("malformed value in %q: %w", line, err)
	}

	when, err := time.ParseInLocation(RecordTimeLayout, fields[3], time.Local)
	if err != nil {
		return Extreme{}, fmt.Errorf("malformed timestamp in %q: %w", line, err)
	}

	return Extreme{Observation: fields[1], Value: value, Time: when}, nil
}

// DSTSchedule is the logger's daylight saving schedule: start, end and
// offset. The wire format is "mm/dd HH:MM,mm/dd HH:MM,[MM]M" (offset in
// minutes); "0" means DST handling is disabled.
type DSTSchedule struct {
	Enabled     bool
	StartMonth  int
	StartDay    int
	StartHour   int
	StartMinute int
	EndMonth    int
	EndDay      int
	EndHour     int
	EndMinute   int
	Offset      int
}

func ParseDSTSchedule(value string) (DSTSchedule, error) {
	value = strings.TrimSpace(value)
	if value == "0" {
		return DSTSchedule{}, nil
	}

	parts := strings.Split(value, ",")
	if len(parts) != 3 {
		return DSTSchedule{}, fmt.Errorf("malformed DST schedule %q, want \"mm/dd HH:MM,mm/dd HH:MM,[MM]M\"", value)
	}

	var schedule DSTSchedule
	var err error

	schedule.StartMonth, schedule.StartDay, schedule.StartHour, schedule.StartMinute, err = parseDSTMoment(parts[0])
	if err != nil {
		return DSTSchedule{}, fmt.Errorf("malformed DST start %q: %w", parts[0], err)
	}
	schedule.EndMonth, schedule.EndDay, schedule.EndHour, schedule.EndMinute, err = parseDSTMoment(parts[1])
	if err != nil {
		return DSTSchedule{}, fmt.Errorf("malformed DST end %q: %w", parts[1], err)
	}

	schedule.Offset, err = strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil || schedule.Offset < 1 || schedule.Offset > 120 {
		return DSTSchedule{}, fmt.Errorf("malformed DST offset %q: want 1..120 minutes", parts[2])
	}

	schedule.Enabled = true
	return schedule, nil
}

func parseDSTMoment(value string) (month, day, hour, minute int, err error) {
	var parsed time.Time
	parsed, err = time.Parse("01/02 15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return int(parsed.Month()), parsed.Day(), parsed.Hour(), parsed.Minute(), nil
}

func (d DSTSchedule) String() string {
	if !d.Enabled {
		return "0"
	}
	return fmt.Sprintf("%02d/%02d %02d:%02d,%02d/%02d %02d:%02d,%d",
		d.StartMonth, d.StartDay, d.StartHour, d.StartMinute,
		d.EndMonth, d.EndDay, d.EndHour, d.EndMinute,
		d.Offset)
}
