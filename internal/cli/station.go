package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/wxtools/wxctl/internal/globals"
	"github.com/wxtools/wxctl/internal/station"
)

var stationFlags struct {
	address string
	yes     bool

	info         bool
	current      bool
	history      int
	historySince int
	clearMemory  bool
	getHeader    bool
	getRain      bool
	resetRain    bool
	getMax       bool
	resetMax     bool
	getMin       bool
	resetMin     bool
	getClock     bool
	setClock     bool
	getInterval  bool
	setInterval  int
	getUnits     bool
	setUnits     string
	getDST       bool
	setDST       string
	getChannel   bool
	setChannel   int
	discover     bool
}

// stationCmd represents the station command
var stationCmd = &cobra.Command{
	Use:   "station",
	Short: "Configure and query the data logger",
	Long: `Configure and query the weather station data logger over its network
serial bridge. Exactly one action flag must be given.

Examples:
  wxctl station --info
  wxctl station --history=50
  wxctl station --history-since=120
  wxctl station --set-interval=5
  wxctl station --set-dst="03/08 02:00,11/01 02:00,60"`,
	RunE: runStation,
}

// stationActions maps action flag names to their handlers. The flag name
// doubles as the user-facing action name in error messages.
var stationActions = map[string]func(context.Context, *station.Client) error{
	"info":          stationInfo,
	"current":       stationCurrent,
	"history":       stationHistory,
	"history-since": stationHistorySince,
	"clear-memory":  stationClearMemory,
	"get-header":    stationGetHeader,
	"get-rain":      stationGetRain,
	"reset-rain":    func(ctx context.Context, c *station.Client) error { return c.ResetRain(ctx) },
	"get-max":       stationGetMax,
	"reset-max":     func(ctx context.Context, c *station.Client) error { return c.ResetMax(ctx) },
	"get-min":       stationGetMin,
	"reset-min":     func(ctx context.Context, c *station.Client) error { return c.ResetMin(ctx) },
	"get-clock":     stationGetClock,
	"set-clock":     stationSetClock,
	"get-interval":  stationGetInterval,
	"set-interval":  stationSetInterval,
	"get-units":     stationGetUnits,
	"set-units":     stationSetUnits,
	"get-dst":       stationGetDST,
	"set-dst":       stationSetDST,
	"get-channel":   stationGetChannel,
	"set-channel":   stationSetChannel,
	"discover":      nil, // handled before a client exists
}

func runStation(cmd *cobra.Command, args []string) error {
	globals.Initialize(verbose)

	var selected []string
	for name := range stationActions {
		if cmd.Flags().Changed(name) {
			selected = append(selected, name)
		}
	}
	if len(selected) != 1 {
		return fmt.Errorf("exactly one station action must be given, got %d (see wxctl station --help)", len(selected))
	}
	action := selected[0]

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if action == "discover" {
		return stationDiscover(ctx)
	}

	address := stationFlags.address
	if address == "" {
		address = globals.Settings.StationAddress
	}

	client := station.NewClient(address, station.WithLogger(globals.Logger))
	return stationActions[action](ctx, client)
}

func stationInfo(ctx context.Context, client *station.Client) error {
	info, err := client.Info(ctx)
	if err != nil {
		return err
	}
	fmt.Println(info.String())
	if info.Memory.Full() {
		fmt.Println("WARNING: logger memory is full; no new records are being stored. Use --clear-memory after downloading.")
	}
	return nil
}

func stationCurrent(ctx context.Context, client *station.Client) error {
	record, err := client.Current(ctx)
	if err != nil {
		return err
	}
	printRecords([]station.Record{record})
	return nil
}

func stationHistory(ctx context.Context, client *station.Client) error {
	records, err := client.History(ctx, stationFlags.history)
	if err != nil {
		return err
	}
	printRecords(records)
	return nil
}

func stationHistorySince(ctx context.Context, client *station.Client) error {
	records, err := client.HistorySince(ctx, stationFlags.historySince)
	if err != nil {
		return err
	}
	printRecords(records)
	return nil
}

func printRecords(records []station.Record) {
	if len(records) == 0 {
		fmt.Println("No records.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, strings.Join(station.HeaderColumns, "\t"))
	for _, record := range records {
		fmt.Fprintf(w, "%s\t%.1f\t%.0f\t%.1f\t%.0f\t%.1f\t%.1f\t%.0f\t%.1f\t%.1f\t%.1f\n",
			record.Time.Format(station.RecordTimeLayout),
			record.OutTemp, record.OutHumidity, record.InTemp, record.InHumidity,
			record.Pressure, record.WindSpeed, record.WindDir, record.WindGust,
			record.Rain, record.RainRate)
	}
}

func stationClearMemory(ctx context.Context, client *station.Client) error {
	if !stationFlags.yes {
		fmt.Print("Clearing memory erases all stored records. Are you sure you want to proceed (y/n)? ")
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("Nothing done.")
			return nil
		}
	}

	if err := client.ClearMemory(ctx); err != nil {
		return err
	}
	fmt.Println("Logger memory cleared.")
	return nil
}

func stationGetHeader(ctx context.Context, client *station.Client) error {
	header, err := client.Header(ctx)
	if err != nil {
		return err
	}
	fmt.Println(strings.Join(header, ","))
	return nil
}

func stationGetRain(ctx context.Context, client *station.Client) error {
	total, err := client.Rain(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Rain counter: %.1f\n", total)
	return nil
}

func stationGetMax(ctx context.Context, client *station.Client) error {
	extremes, err := client.Max(ctx)
	if err != nil {
		return err
	}
	printExtremes(extremes)
	return nil
}

func stationGetMin(ctx context.Context, client *station.Client) error {
	extremes, err := client.Min(ctx)
	if err != nil {
		return err
	}
	printExtremes(extremes)
	return nil
}

func printExtremes(extremes []station.Extreme) {
	if len(extremes) == 0 {
		fmt.Println("No extremes recorded.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "OBSERVATION\tVALUE\tTIME")
	for _, extreme := range extremes {
		fmt.Fprintf(w, "%s\t%.1f\t%s\n",
			extreme.Observation, extreme.Value, extreme.Time.Format(station.RecordTimeLayout))
	}
}

func stationGetClock(ctx context.Context, client *station.Client) error {
	clock, skew, err := client.Clock(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Station clock: %s (skew %s)\n", clock.Format(station.RecordTimeLayout), skew.Round(time.Second))
	return nil
}

func stationSetClock(ctx context.Context, client *station.Client) error {
	set, err := client.SetClock(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Station clock set to %s\n", set.Format(station.RecordTimeLayout))
	return nil
}

func stationGetInterval(ctx context.Context, client *station.Client) error {
	interval, err := client.Interval(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Archive interval: %d min\n", interval)
	return nil
}

func stationSetInterval(ctx context.Context, client *station.Client) error {
	if err := client.SetInterval(ctx, stationFlags.setInterval); err != nil {
		return err
	}
	fmt.Printf("Archive interval set to %d min\n", stationFlags.setInterval)
	return nil
}

func stationGetUnits(ctx context.Context, client *station.Client) error {
	unitSystem, err := client.Units(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Units: %s\n", unitSystem)
	return nil
}

func stationSetUnits(ctx context.Context, client *station.Client) error {
	if err := client.SetUnits(ctx, stationFlags.setUnits); err != nil {
		return err
	}
	fmt.Printf("Units set to %s\n", strings.ToUpper(stationFlags.setUnits))
	return nil
}

func stationGetDST(ctx context.Context, client *station.Client) error {
	schedule, err := client.DST(ctx)
	if err != nil {
		return err
	}
	if !schedule.Enabled {
		fmt.Println("DST: disabled")
		return nil
	}
	fmt.Printf("DST: %s\n", schedule.String())
	return nil
}

func stationSetDST(ctx context.Context, client *station.Client) error {
	schedule, err := station.ParseDSTSchedule(stationFlags.setDST)
	if err != nil {
		return err
	}
	if err := client.SetDST(ctx, schedule); err != nil {
		return err
	}
	fmt.Printf("DST set to %s\n", schedule.String())
	return nil
}

func stationGetChannel(ctx context.Context, client *station.Client) error {
	channel, err := client.Channel(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Channel: %d\n", channel)
	return nil
}

func stationSetChannel(ctx context.Context, client *station.Client) error {
	if err := client.SetChannel(ctx, stationFlags.setChannel); err != nil {
		return err
	}
	fmt.Printf("Channel set to %d\n", stationFlags.setChannel)
	return nil
}

func stationDiscover(ctx context.Context) error {
	loggers, err := station.Discover(ctx, station.DiscoveryTimeout, globals.Logger)
	if err != nil {
		return err
	}
	if len(loggers) == 0 {
		fmt.Println("No loggers found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "INSTANCE\tHOST\tADDRESS")
	for _, found := range loggers {
		fmt.Fprintf(w, "%s\t%s\t%s\n", found.Instance, found.Host, found.Address)
	}
	return nil
}

func init() {
	flags := stationCmd.Flags()

	flags.StringVar(&stationFlags.address, "address", "", "Logger address (host:port), overriding the configured one")
	flags.BoolVarP(&stationFlags.yes, "yes", "y", false, "Answer yes to confirmation prompts")

	flags.BoolVar(&stationFlags.info, "info", false, "Show logger status")
	flags.BoolVar(&stationFlags.current, "current", false, "Show current readings")
	flags.IntVar(&stationFlags.history, "history", 0, "Download the latest N records (0 = all)")
	flags.IntVar(&stationFlags.historySince, "history-since", 0, "Download records covering the last N minutes")
	flags.BoolVar(&stationFlags.clearMemory, "clear-memory", false, "Erase all stored records")
	flags.BoolVar(&stationFlags.getHeader, "get-header", false, "Show the record column header")
	flags.BoolVar(&stationFlags.getRain, "get-rain", false, "Show the cumulative rain counter")
	flags.BoolVar(&stationFlags.resetRain, "reset-rain", false, "Zero the cumulative rain counter")
	flags.BoolVar(&stationFlags.getMax, "get-max", false, "Show recorded maxima")
	flags.BoolVar(&stationFlags.resetMax, "reset-max", false, "Clear recorded maxima")
	flags.BoolVar(&stationFlags.getMin, "get-min", false, "Show recorded minima")
	flags.BoolVar(&stationFlags.resetMin, "reset-min", false, "Clear recorded minima")
	flags.BoolVar(&stationFlags.getClock, "get-clock", false, "Show the station clock and skew")
	flags.BoolVar(&stationFlags.setClock, "set-clock", false, "Set the station clock to local time")
	flags.BoolVar(&stationFlags.getInterval, "get-interval", false, "Show the archive interval")
	flags.IntVar(&stationFlags.setInterval, "set-interval", 0, "Set the archive interval in minutes")
	flags.BoolVar(&stationFlags.getUnits, "get-units", false, "Show the logger unit system")
	flags.StringVar(&stationFlags.setUnits, "set-units", "", "Set the logger unit system (METRIC or ENGLISH)")
	flags.BoolVar(&stationFlags.getDST, "get-dst", false, "Show the DST schedule")
	flags.StringVar(&stationFlags.setDST, "set-dst", "", `Set the DST schedule ("mm/dd HH:MM,mm/dd HH:MM,[MM]M", 0 disables)`)
	flags.BoolVar(&stationFlags.getChannel, "get-channel", false, "Show the sensor channel")
	flags.IntVar(&stationFlags.setChannel, "set-channel", 0, "Set the sensor channel (0-3)")
	flags.BoolVar(&stationFlags.discover, "discover", false, "Browse the network for logger bridges")

	rootCmd.AddCommand(stationCmd)
}
