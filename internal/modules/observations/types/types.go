package types

import "time"

// SeriesTimeLayout formats timestamps of the chart series endpoints.
const SeriesTimeLayout = "2006-01-02 15:04"

// Observation is one weather reading for a city.
type Observation struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	City          string    `gorm:"column:city;not null" json:"city"`
	Timestamp     time.Time `gorm:"column:timestamp;not null" json:"timestamp"`
	Precipitation string    `gorm:"column:precipitation;not null;default:''" json:"precipitation"`
	Temperature   float64   `gorm:"column:temperature;not null" json:"temperature"`
	Humidity      int       `gorm:"column:humidity;not null" json:"humidity"`
	WindSpeed     float64   `gorm:"column:wind_speed;not null" json:"windSpeed"`
}

func (Observation) TableName() string { return "observations" }

type TemperaturePoint struct {
	Timestamp   string  `json:"timestamp"`
	Temperature float64 `json:"temperature"`
}

type HumidityPoint struct {
	Timestamp string `json:"timestamp"`
	Humidity  int    `json:"humidity"`
}

// Event actions published after successful writes.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Event describes a completed write to an observation.
type Event struct {
	Action      string      `json:"action"`
	Observation Observation `json:"observation"`
	At          time.Time   `json:"at"`
}
