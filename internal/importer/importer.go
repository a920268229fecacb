package importer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/wxtools/wxctl/internal/archive"
	"github.com/wxtools/wxctl/internal/config"
	"github.com/wxtools/wxctl/internal/models"
	"github.com/wxtools/wxctl/internal/units"
)

// ErrAborted is returned when the operator declines the confirmation prompt.
var ErrAborted = errors.New("import aborted")

// Importer moves historical records from a Source into the archive,
// chronologically, period by period. It must not run concurrently with the
// collection service against the same archive; an exclusive lock file
// enforces that.
type Importer struct {
	store        *archive.Store
	source       Source
	cfg          *config.ImportConfig
	logger       *slog.Logger
	clock        clockwork.Clock
	out          io.Writer
	in           io.Reader
	lockPath     string
	archiveUnits string

	dryRun   bool
	noPrompt bool
	from     time.Time
	to       time.Time
}

type Option func(*Importer)

func WithClock(clock clockwork.Clock) Option {
	return func(i *Importer) { i.clock = clock }
}

func WithOutput(out io.Writer) Option {
	return func(i *Importer) { i.out = out }
}

func WithInput(in io.Reader) Option {
	return func(i *Importer) { i.in = in }
}

func WithLockPath(path string) Option {
	return func(i *Importer) { i.lockPath = path }
}

func WithDryRun(dryRun bool) Option {
	return func(i *Importer) { i.dryRun = dryRun }
}

func WithNoPrompt(noPrompt bool) Option {
	return func(i *Importer) { i.noPrompt = noPrompt }
}

// WithDateRange restricts the import to [from 00:00, to+1d 00:00). Zero
// values leave the corresponding bound open.
func WithDateRange(from, to time.Time) Option {
	return func(i *Importer) {
		i.from = from
		i.to = to
	}
}

func New(store *archive.Store, source Source, cfg *config.ImportConfig, archiveUnits string, logger *slog.Logger, opts ...Option) *Importer {
	importer := &Importer{
		store:        store,
		source:       source,
		cfg:          cfg,
		logger:       logger,
		clock:        clockwork.NewRealClock(),
		out:          os.Stdout,
		in:           os.Stdin,
		archiveUnits: archiveUnits,
	}
	for _, opt := range opts {
		opt(importer)
	}
	return importer
}

// PeriodResult is the outcome of one source file.
type PeriodResult struct {
	Period        string
	Unique        int
	LastTimestamp int64
}

// Result is the outcome of a whole run. Processed is always the sum of the
// per-period Unique counts; Imported is what actually landed in the archive
// (destination duplicates excluded).
type Result struct {
	Periods    []PeriodResult
	Processed  int
	Imported   int
	Duplicates int
	Elapsed    time.Duration
}

func (i *Importer) Run(ctx context.Context) (*Result, error) {
	if i.lockPath != "" && !i.dryRun {
		lock, err := archive.AcquireLock(i.lockPath)
		if err != nil {
			return nil, err
		}
		defer lock.Release()
	}

	periods, err := i.source.Periods()
	if err != nil {
		return nil, err
	}

	if !i.dryRun && !i.noPrompt {
		if err := i.confirm(len(periods)); err != nil {
			return nil, err
		}
	}

	start := i.clock.Now()
	result := &Result{}
	seen := map[int64]bool{}

	for _, period := range periods {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		records, err := i.source.ReadPeriod(period)
		if err != nil {
			return result, err
		}

		unique, err := i.prepare(records, seen)
		if err != nil {
			return result, err
		}

		periodResult := PeriodResult{Period: period, Unique: len(unique)}
		if len(unique) > 0 {
			periodResult.LastTimestamp = unique[len(unique)-1].Timestamp
		}

		if !i.dryRun && len(unique) > 0 {
			insert, err := i.store.InsertRecords(ctx, unique, i.cfg.Tranche)
			if err != nil {
				return result, fmt.Errorf("failed to import period %s: %w", period, err)
			}
			result.Imported += insert.Inserted
			result.Duplicates += len(insert.Duplicates)
		}

		result.Periods = append(result.Periods, periodResult)
		result.Processed += periodResult.Unique

		i.reportPeriod(periodResult)
	}

	result.Elapsed = i.clock.Now().Sub(start)
	i.reportTotals(result)

	return result, nil
}

// prepare filters records to the date range, converts them to the archive
// unit system, sorts them and drops timestamps already seen this run.
func (i *Importer) prepare(records []models.ArchiveRecord, seen map[int64]bool) ([]models.ArchiveRecord, error) {
	var lower, upper int64
	if !i.from.IsZero() {
		lower = time.Date(i.from.Year(), i.from.Month(), i.from.Day(), 0, 0, 0, 0, time.Local).Unix()
	}
	if !i.to.IsZero() {
		upper = time.Date(i.to.Year(), i.to.Month(), i.to.Day(), 0, 0, 0, 0, time.Local).AddDate(0, 0, 1).Unix()
	}

	unique := make([]models.ArchiveRecord, 0, len(records))
	for _, record := range records {
		if lower != 0 && record.Timestamp < lower {
			continue
		}
		if upper != 0 && record.Timestamp >= upper {
			continue
		}
		if seen[record.Timestamp] {
			i.logger.Debug("duplicate timestamp within run, skipping", "timestamp", record.Timestamp)
			continue
		}
		seen[record.Timestamp] = true

		if err := units.ConvertRecord(&record, i.cfg.Units, i.archiveUnits); err != nil {
			return nil, err
		}
		unique = append(unique, record)
	}

	sort.Slice(unique, func(a, b int) bool {
		return unique[a].Timestamp < unique[b].Timestamp
	})
	return unique, nil
}

func (i *Importer) confirm(periods int) error {
	fmt.Fprintf(i.out, "About to import %d period(s) into the archive.\n", periods)
	fmt.Fprint(i.out, "Proceeding will modify the archive. Are you sure you want to proceed (y/n)? ")

	reader := bufio.NewReader(i.in)
	answer, err := reader.ReadString('\n')
	if err != nil && answer == "" {
		return ErrAborted
	}

	answer = strings.ToLower(strings.TrimSpace(answer))
	if answer != "y" && answer != "yes" {
		fmt.Fprintln(i.out, "Nothing done.")
		return ErrAborted
	}
	return nil
}

func (i *Importer) reportPeriod(period PeriodResult) {
	if period.Unique == 0 {
		fmt.Fprintf(i.out, "Period %s: no records in range\n", period.Period)
		return
	}
	fmt.Fprintf(i.out, "Period %s: unique records processed: %d; last timestamp: %s (%d)\n",
		period.Period, period.Unique,
		time.Unix(period.LastTimestamp, 0).Format("2006-01-02 15:04:05 MST"),
		period.LastTimestamp)
}

func (i *Importer) reportTotals(result *Result) {
	verb := "imported"
	if i.dryRun {
		verb = "would be imported (dry run)"
	}
	fmt.Fprintf(i.out, "%d records processed in %d period(s); %d %s; %d already in archive; elapsed %s\n",
		result.Processed, len(result.Periods), result.Imported, verb,
		result.Duplicates, result.Elapsed.Round(time.Millisecond))
}
