package units

import (
	"fmt"

	"github.com/wxtools/wxctl/internal/models"
)

// Unit systems understood by the logger and the archive.
const (
	Metric  = "METRIC"
	English = "ENGLISH"
)

const (
	hpaPerInHg = 33.8639
	kmhPerMph  = 1.609344
	mmPerInch  = 25.4
)

func Valid(system string) bool {
	return system == Metric || system == English
}

func cToF(c float64) float64 { return c*9/5 + 32 }
func fToC(f float64) float64 { return (f - 32) * 5 / 9 }

// ConvertRecord converts a record's observations between unit systems in
// place and restamps its UnitSystem. A no-op when from == to.
func ConvertRecord(record *models.ArchiveRecord, from, to string) error {
	if !Valid(from) || !Valid(to) {
		return fmt.Errorf("unknown unit system conversion %s -> %s", from, to)
	}
	if from == to {
		record.UnitSystem = to
		return nil
	}

	toEnglish := to == English

	convert := func(value *float64, f func(float64) float64) {
		if value != nil {
			*value = f(*value)
		}
	}

	temperature := fToC
	if toEnglish {
		temperature = cToF
	}

	convert(record.InTemp, temperature)
	convert(record.OutTemp, temperature)
	convert(record.Dewpoint, temperature)

	if toEnglish {
		convert(record.Barometer, func(v float64) float64 { return v / hpaPerInHg })
		convert(record.Pressure, func(v float64) float64 { return v / hpaPerInHg })
		convert(record.WindSpeed, func(v float64) float64 { return v / kmhPerMph })
		convert(record.WindGust, func(v float64) float64 { return v / kmhPerMph })
		convert(record.Rain, func(v float64) float64 { return v / mmPerInch })
		convert(record.RainRate, func(v float64) float64 { return v / mmPerInch })
	} else {
		convert(record.Barometer, func(v float64) float64 { return v * hpaPerInHg })
		convert(record.Pressure, func(v float64) float64 { return v * hpaPerInHg })
		convert(record.WindSpeed, func(v float64) float64 { return v * kmhPerMph })
		convert(record.WindGust, func(v float64) float64 { return v * kmhPerMph })
		convert(record.Rain, func(v float64) float64 { return v * mmPerInch })
		convert(record.RainRate, func(v float64) float64 { return v * mmPerInch })
	}

	record.UnitSystem = to
	return nil
}

// Label returns the display unit for an observation in a given system.
func Label(observation, system string) string {
	metric := system == Metric
	switch observation {
	case "inTemp", "outTemp", "dewpoint":
		if metric {
			return "C"
		}
		return "F"
	case "barometer", "pressure":
		if metric {
			return "hPa"
		}
		return "inHg"
	case "windSpeed", "windGust":
		if metric {
			return "km/h"
		}
		return "mph"
	case "rain", "rainRate":
		if metric {
			return "mm"
		}
		return "in"
	case "inHumidity", "outHumidity":
		return "%"
	case "windDir":
		return "deg"
	}
	return ""
}
