package models

import "github.com/shopspring/decimal"

// Stats summarises the stored earnings against a savings goal.
type Stats struct {
	Count           int64           `json:"count"`
	Total           decimal.Decimal `json:"total"`
	Average         decimal.Decimal `json:"average"`
	Min             decimal.Decimal `json:"min"`
	Max             decimal.Decimal `json:"max"`
	FirstDate       *Date           `json:"first_date"`
	LastDate        *Date           `json:"last_date"`
	Goal            decimal.Decimal `json:"goal"`
	Remaining       decimal.Decimal `json:"remaining"`
	ProgressPercent decimal.Decimal `json:"progress_percent"`
}

var hundred = decimal.NewFromInt(100)

// ApplyGoal fills the goal-derived fields from Total. A non-positive goal
// leaves progress at zero.
func (s *Stats) ApplyGoal(goal decimal.Decimal) {
	s.Goal = goal
	s.Remaining = decimal.Max(goal.Sub(s.Total), decimal.Zero)
	if !goal.IsPositive() {
		s.ProgressPercent = decimal.Zero
		return
	}
	pct := s.Total.Div(goal).Mul(hundred)
	s.ProgressPercent = decimal.Min(pct, hundred).Round(2)
}

// Summarize computes count, sums and bounds over rows in memory.
func Summarize(rows []Earning) Stats {
	var st Stats
	if len(rows) == 0 {
		return st
	}
	st.Count = int64(len(rows))
	st.Min = rows[0].Amount
	st.Max = rows[0].Amount
	first, last := rows[0].Date, rows[0].Date
	for _, r := range rows {
		st.Total = st.Total.Add(r.Amount)
		st.Min = decimal.Min(st.Min, r.Amount)
		st.Max = decimal.Max(st.Max, r.Amount)
		if r.Date.Before(first) {
			first = r.Date
		}
		if last.Before(r.Date) {
			last = r.Date
		}
	}
	st.Average = st.Total.Div(decimal.NewFromInt(st.Count)).Round(2)
	st.FirstDate = &first
	st.LastDate = &last
	return st
}
