package entity

import (
	"math"
	"time"
)

// MaterialRate is the published price of one material for one day.
type MaterialRate struct {
	ID        string
	Material  string
	Category  string
	Unit      string
	Price     float64
	Currency  string
	RateDate  time.Time
	UpdatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RateQuote is a rate together with its movement against the previous published day.
type RateQuote struct {
	MaterialRate
	PreviousPrice *float64
	Change        float64
	ChangePercent float64
}

// NewRateQuote derives the day-over-day movement. Without a previous price the change is zero.
func NewRateQuote(r MaterialRate, previous *float64) RateQuote {
	q := RateQuote{MaterialRate: r, PreviousPrice: previous}
	if previous == nil {
		return q
	}
	q.Change = round2(r.Price - *previous)
	if *previous != 0 {
		q.ChangePercent = round2((r.Price - *previous) / *previous * 100)
	}
	return q
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
