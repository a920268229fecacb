package models

// ArchiveRecord is one stored weather observation set. Uniqueness in the
// archive is enforced by the record timestamp.
type ArchiveRecord struct {
	ID         uint  `gorm:"primaryKey;autoIncrement" json:"id"`
	Timestamp  int64 `gorm:"uniqueIndex:idx_archive_records_timestamp;not null" json:"timestamp"`
	Interval   int   `gorm:"not null" json:"interval"`
	UnitSystem string `gorm:"not null" json:"unit_system"`

	Barometer   *float64 `json:"barometer"`
	Pressure    *float64 `json:"pressure"`
	InTemp      *float64 `json:"in_temp"`
	OutTemp     *float64 `json:"out_temp"`
	InHumidity  *float64 `json:"in_humidity"`
	OutHumidity *float64 `json:"out_humidity"`
	WindSpeed   *float64 `json:"wind_speed"`
	WindDir     *float64 `json:"wind_dir"`
	WindGust    *float64 `json:"wind_gust"`
	Rain        *float64 `json:"rain"`
	RainRate    *float64 `json:"rain_rate"`
	Dewpoint    *float64 `json:"dewpoint"`
}

func (ArchiveRecord) TableName() string {
	return "archive_records"
}

// ObservationNames lists the archive's observation fields, in display order.
var ObservationNames = []string{
	"barometer", "pressure", "inTemp", "outTemp", "inHumidity", "outHumidity",
	"windSpeed", "windDir", "windGust", "rain", "rainRate", "dewpoint",
}

func IsObservation(name string) bool {
	for _, known := range ObservationNames {
		if known == name {
			return true
		}
	}
	return false
}

// Observations returns the record's non-nil observation values keyed by
// observation name. Keys match daily summary observation names.
func (r *ArchiveRecord) Observations() map[string]float64 {
	obs := map[string]*float64{
		"barometer":   r.Barometer,
		"pressure":    r.Pressure,
		"inTemp":      r.InTemp,
		"outTemp":     r.OutTemp,
		"inHumidity":  r.InHumidity,
		"outHumidity": r.OutHumidity,
		"windSpeed":   r.WindSpeed,
		"windDir":     r.WindDir,
		"windGust":    r.WindGust,
		"rain":        r.Rain,
		"rainRate":    r.RainRate,
		"dewpoint":    r.Dewpoint,
	}

	out := make(map[string]float64, len(obs))
	for name, value := range obs {
		if value != nil {
			out[name] = *value
		}
	}
	return out
}

// SetObservation assigns an observation by name. Unknown names are ignored
// so that sources with extra columns can be mapped loosely.
func (r *ArchiveRecord) SetObservation(name string, value float64) {
	v := value
	switch name {
	case "barometer":
		r.Barometer = &v
	case "pressure":
		r.Pressure = &v
	case "inTemp":
		r.InTemp = &v
	case "outTemp":
		r.OutTemp = &v
	case "inHumidity":
		r.InHumidity = &v
	case "outHumidity":
		r.OutHumidity = &v
	case "windSpeed":
		r.WindSpeed = &v
	case "windDir":
		r.WindDir = &v
	case "windGust":
		r.WindGust = &v
	case "rain":
		r.Rain = &v
	case "rainRate":
		r.RainRate = &v
	case "dewpoint":
		r.Dewpoint = &v
	}
}
