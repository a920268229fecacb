package models

// DailySummary aggregates one observation over one local calendar day.
// Date is stored as "2006-01-02"; MinTime/MaxTime are the unix timestamps
// of the records that set the extremes.
type DailySummary struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Date        string  `gorm:"uniqueIndex:idx_daily_summaries_date_obs;not null" json:"date"`
	Observation string  `gorm:"uniqueIndex:idx_daily_summaries_date_obs;not null" json:"observation"`
	Min         float64 `json:"min"`
	MinTime     int64   `json:"min_time"`
	Max         float64 `json:"max"`
	MaxTime     int64   `json:"max_time"`
	Sum         float64 `json:"sum"`
	Count       int64   `gorm:"not null" json:"count"`
}

func (DailySummary) TableName() string {
	return "daily_summaries"
}
