package station

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultTimeout = 5 * time.Second

	defaultMaxRetries = 3
)

// DialFunc opens a connection to the logger's serial bridge.
type DialFunc func(ctx context.Context) (net.Conn, error)

// Client drives a data logger over its line protocol. Transport failures
// are retried with exponential backoff; device-reported errors are not.
type Client struct {
	address    string
	dial       DialFunc
	clock      clockwork.Clock
	logger     *slog.Logger
	timeout    time.Duration
	maxRetries uint64
}

type Option func(*Client)

func WithDialFunc(dial DialFunc) Option {
	return func(c *Client) { c.dial = dial }
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.timeout = timeout }
}

func WithMaxRetries(retries uint64) Option {
	return func(c *Client) { c.maxRetries = retries }
}

func NewClient(address string, opts ...Option) *Client {
	client := &Client{
		address:    address,
		clock:      clockwork.NewRealClock(),
		logger:     slog.Default(),
		timeout:    DefaultTimeout,
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.dial == nil {
		client.dial = func(ctx context.Context) (net.Conn, error) {
			var dialer net.Dialer
			return dialer.DialContext(ctx, "tcp", client.address)
		}
	}
	return client
}

// exchange sends one command and collects the reply. Multiline replies run
// until the terminating OK line, which is not returned.
func (c *Client) exchange(ctx context.Context, command string, multiline bool) ([]string, error) {
	var lines []string

	operation := func() error {
		conn, err := c.dial(ctx)
		if err != nil {
			return fmt.Errorf("failed to reach logger at %s: %w", c.address, err)
		}
		defer conn.Close()

		_ = conn.SetDeadline(time.Now().Add(c.timeout))

		if _, err := fmt.Fprintf(conn, "%s\r\n", command); err != nil {
			return fmt.Errorf("failed to send %q: %w", command, err)
		}

		scanner := bufio.NewScanner(conn)
		lines = lines[:0]
		for scanner.Scan() {
			line := strings.TrimRight(scanner.Text(), "\r")
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, replyErrPrefix) {
				// The device understood us and refused: retrying won't help.
				return backoff.Permanent(fmt.Errorf("logger error: %s",
					strings.TrimPrefix(line, replyErrPrefix)))
			}
			if line == replyOK {
				return nil
			}
			lines = append(lines, line)
			if !multiline {
				return nil
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read reply to %q: %w", command, err)
		}
		return fmt.Errorf("connection closed before reply to %q completed", command)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)

	notify := func(err error, wait time.Duration) {
		c.logger.Debug("retrying logger exchange", "command", command, "error", err, "wait", wait)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, err
	}
	return lines, nil
}

func (c *Client) querySingle(ctx context.Context, command string) (string, error) {
	lines, err := c.exchange(ctx, command, false)
	if err != nil {
		return "", err
	}
	if len(lines) != 1 {
		return "", fmt.Errorf("unexpected reply to %q", command)
	}
	return lines[0], nil
}

func (c *Client) action(ctx context.Context, command string) error {
	lines, err := c.exchange(ctx, command, false)
	if err != nil {
		return err
	}
	if len(lines) != 0 {
		return fmt.Errorf("unexpected reply %q to %q", lines[0], command)
	}
	return nil
}

// Version returns the logger's model and firmware revision.
func (c *Client) Version(ctx context.Context) (model, firmware string, err error) {
	line, err := c.querySingle(ctx, cmdVersion)
	if err != nil {
		return "", "", err
	}
	fields := strings.Split(line, ",")
	if len(fields) != 3 || fields[0] != "VER" {
		return "", "", fmt.Errorf("malformed version reply %q", line)
	}
	return fields[1], fields[2], nil
}

// Current fetches the logger's current readings.
func (c *Client) Current(ctx context.Context) (Record, error) {
	line, err := c.querySingle(ctx, cmdNow)
	if err != nil {
		return Record{}, err
	}
	return parseRecord(line, "NOW")
}

// Header returns the logger's record column header.
func (c *Client) Header(ctx context.Context) ([]string, error) {
	line, err := c.querySingle(ctx, cmdHeader)
	if err != nil {
		return nil, err
	}
	fields := strings.Split(line, ",")
	if len(fields) < 2 || fields[0] != "HDR" {
		return nil, fmt.Errorf("malformed header reply %q", line)
	}
	return fields[1:], nil
}

// History downloads the latest count stored records, oldest first. A count
// of 0 downloads everything in memory.
func (c *Client) History(ctx context.Context, count int) ([]Record, error) {
	command := cmdDownload
	if count > 0 {
		command = fmt.Sprintf("%s=%d", cmdDownload, count)
	}

	lines, err := c.exchange(ctx, command, true)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(lines))
	for _, line := range lines {
		record, err := parseRecord(line, "REC")
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// HistorySince downloads the records covering the last given number of
// minutes, derived from the logger's archive interval and capped at what
// memory holds.
func (c *Client) HistorySince(ctx context.Context, minutes int) ([]Record, error) {
	if minutes <= 0 {
		return nil, fmt.Errorf("minutes must be positive")
	}

	interval, err := c.Interval(ctx)
	if err != nil {
		return nil, err
	}

	memory, err := c.Memory(ctx)
	if err != nil {
		return nil, err
	}

	count := (minutes + interval - 1) / interval
	if stored := memory.Records(); count > stored {
		count = stored
	}
	if count == 0 {
		return nil, nil
	}

	return c.History(ctx, count)
}

// Memory queries the logger's record memory usage.
func (c *Client) Memory(ctx context.Context) (MemoryStatus, error) {
	line, err := c.querySingle(ctx, cmdMemQuery)
	if err != nil {
		return MemoryStatus{}, err
	}
	return parseMemory(line)
}

// ClearMemory erases all stored records.
func (c *Client) ClearMemory(ctx context.Context) error {
	return c.action(ctx, cmdMemClear)
}

// Clock returns the logger's clock and its skew from local time.
func (c *Client) Clock(ctx context.Context) (time.Time, time.Duration, error) {
	line, err := c.querySingle(ctx, cmdTimeQuery)
	if err != nil {
		return time.Time{}, 0, err
	}

	value, err := parseKeyValue(line, "TIME")
	if err != nil {
		return time.Time{}, 0, err
	}

	deviceTime, err := time.ParseInLocation(RecordTimeLayout, value, time.Local)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("malformed clock reply %q: %w", line, err)
	}

	return deviceTime, deviceTime.Sub(c.clock.Now()), nil
}

// SetClock sets the logger's clock to the current local time and returns
// the time that was set.
func (c *Client) SetClock(ctx context.Context) (time.Time, error) {
	now := c.clock.Now()
	command := fmt.Sprintf("TIME=%s", now.Format(RecordTimeLayout))

	line, err := c.querySingle(ctx, command)
	if err != nil {
		return time.Time{}, err
	}
	if line != command {
		return time.Time{}, fmt.Errorf("logger did not accept clock: %q", line)
	}
	return now, nil
}

// Interval returns the archive interval in minutes.
func (c *Client) Interval(ctx context.Context) (int, error) {
	line, err := c.querySingle(ctx, cmdIntQuery)
	if err != nil {
		return 0, err
	}

	value, err := parseKeyValue(line, "LOGINT")
	if err != nil {
		return 0, err
	}

	interval, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("malformed interval reply %q: %w", line, err)
	}
	return interval, nil
}

// SetInterval sets the archive interval in minutes. Only the logger's
// supported values are accepted.
func (c *Client) SetInterval(ctx context.Context, minutes int) error {
	supported := false
	for _, v := range SupportedIntervals {
		if v == minutes {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("unsupported interval %d: logger accepts %v minutes", minutes, SupportedIntervals)
	}

	_, err := c.querySingle(ctx, fmt.Sprintf("LOGINT=%d", minutes))
	return err
}

// Units returns the logger's unit system.
func (c *Client) Units(ctx context.Context) (string, error) {
	line, err := c.querySingle(ctx, cmdUnitsQuery)
	if err != nil {
		return "", err
	}
	return parseKeyValue(line, "UNITS")
}

// SetUnits switches the logger between METRIC and ENGLISH.
func (c *Client) SetUnits(ctx context.Context, system string) error {
	system = strings.ToUpper(system)
	if system != "METRIC" && system != "ENGLISH" {
		return fmt.Errorf("invalid unit system %q: must be METRIC or ENGLISH", system)
	}
	_, err := c.querySingle(ctx, fmt.Sprintf("UNITS=%s", system))
	return err
}

// DST returns the logger's daylight saving schedule.
func (c *Client) DST(ctx context.Context) (DSTSchedule, error) {
	line, err := c.querySingle(ctx, cmdDSTQuery)
	if err != nil {
		return DSTSchedule{}, err
	}

	value, err := parseKeyValue(line, "DST")
	if err != nil {
		return DSTSchedule{}, err
	}
	return ParseDSTSchedule(value)
}

// SetDST programs the daylight saving schedule.
func (c *Client) SetDST(ctx context.Context, schedule DSTSchedule) error {
	_, err := c.querySingle(ctx, fmt.Sprintf("DST=%s", schedule.String()))
	return err
}

// Channel returns the sensor channel the logger listens on.
func (c *Client) Channel(ctx context.Context) (int, error) {
	line, err := c.querySingle(ctx, cmdChanQuery)
	if err != nil {
		return 0, err
	}

	value, err := parseKeyValue(line, "STATION")
	if err != nil {
		return 0, err
	}

	channel, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("malformed channel reply %q: %w", line, err)
	}
	return channel, nil
}

// SetChannel selects the sensor channel, 0 through 3.
func (c *Client) SetChannel(ctx context.Context, channel int) error {
	if channel < 0 || channel > 3 {
		return fmt.Errorf("invalid channel %d: must be 0..3", channel)
	}
	_, err := c.querySingle(ctx, fmt.Sprintf("STATION=%d", channel))
	return err
}

// Rain returns the logger's cumulative rain counter.
func (c *Client) Rain(ctx context.Context) (float64, error) {
	line, err := c.querySingle(ctx, cmdRainQuery)
	if err != nil {
		return 0, err
	}

	value, err := parseKeyValue(line, "RAIN")
	if err != nil {
		return 0, err
	}

	total, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed rain reply %q: %w", line, err)
	}
	return total, nil
}

// ResetRain zeroes the cumulative rain counter.
func (c *Client) ResetRain(ctx context.Context) error {
	return c.action(ctx, cmdRainReset)
}

// Max returns the recorded per-observation maxima.
func (c *Client) Max(ctx context.Context) ([]Extreme, error) {
	return c.extremes(ctx, cmdMaxQuery, "MAX")
}

// ResetMax clears the recorded maxima.
func (c *Client) ResetMax(ctx context.Context) error {
	return c.action(ctx, cmdMaxReset)
}

// Min returns the recorded per-observation minima.
func (c *Client) Min(ctx context.Context) ([]Extreme, error) {
	return c.extremes(ctx, cmdMinQuery, "MIN")
}

// ResetMin clears the recorded minima.
func (c *Client) ResetMin(ctx context.Context) error {
	return c.action(ctx, cmdMinReset)
}

func (c *Client) extremes(ctx context.Context, command, tag string) ([]Extreme, error) {
	lines, err := c.exchange(ctx, command, true)
	if err != nil {
		return nil, err
	}

	extremes := make([]Extreme, 0, len(lines))
	for _, line := range lines {
		extreme, err := parseExtreme(line, tag)
		if err != nil {
			return nil, err
		}
		extremes = append(extremes, extreme)
	}
	return extremes, nil
}

// Info assembles the full logger status.
func (c *Client) Info(ctx context.Context) (Info, error) {
	model, firmware, err := c.Version(ctx)
	if err != nil {
		return Info{}, err
	}

	memory, err := c.Memory(ctx)
	if err != nil {
		return Info{}, err
	}

	interval, err := c.Interval(ctx)
	if err != nil {
		return Info{}, err
	}

	unitSystem, err := c.Units(ctx)
	if err != nil {
		return Info{}, err
	}

	channel, err := c.Channel(ctx)
	if err != nil {
		return Info{}, err
	}

	clock, skew, err := c.Clock(ctx)
	if err != nil {
		return Info{}, err
	}

	return Info{
		Model:     model,
		Firmware:  firmware,
		Memory:    memory,
		Interval:  interval,
		Units:     unitSystem,
		Channel:   channel,
		Clock:     clock,
		ClockSkew: skew,
	}, nil
}
