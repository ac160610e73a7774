package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEarningJSONShape(t *testing.T) {
	e := Earning{ID: 1, Amount: decimal.RequireFromString("150.25"), Description: "Freelance", Date: NewDate(2024, time.January, 15)}
	b, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"amount":150.25,"description":"Freelance","date":"2024-01-15"}`, string(b))
}

func TestEarningInputToEarning(t *testing.T) {
	var in EarningInput
	require.NoError(t, json.Unmarshal([]byte(`{"amount":150.00,"description":"Freelance","date":"2024-01-15"}`), &in))
	e := in.ToEarning()
	assert.Zero(t, e.ID)
	assert.True(t, e.Amount.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, "Freelance", e.Description)
	assert.Equal(t, "2024-01-15", e.Date.String())
}

func TestSummarizeAndGoal(t *testing.T) {
	rows := []Earning{
		{Amount: decimal.NewFromInt(100), Date: NewDate(2024, 1, 10)},
		{Amount: decimal.NewFromInt(300), Date: NewDate(2024, 3, 1)},
		{Amount: decimal.NewFromInt(200), Date: NewDate(2023, 12, 5)},
	}
	st := Summarize(rows)
	st.ApplyGoal(decimal.NewFromInt(1000))

	assert.EqualValues(t, 3, st.Count)
	assert.Equal(t, "600", st.Total.String())
	assert.Equal(t, "200", st.Average.String())
	assert.Equal(t, "100", st.Min.String())
	assert.Equal(t, "300", st.Max.String())
	assert.Equal(t, "2023-12-05", st.FirstDate.String())
	assert.Equal(t, "2024-03-01", st.LastDate.String())
	assert.Equal(t, "400", st.Remaining.String())
	assert.Equal(t, "60", st.ProgressPercent.String())
}

func TestApplyGoalCapsProgress(t *testing.T) {
	st := Stats{Total: decimal.NewFromInt(15000)}
	st.ApplyGoal(decimal.NewFromInt(10000))
	assert.True(t, st.Remaining.IsZero())
	assert.Equal(t, "100", st.ProgressPercent.String())

	empty := Summarize(nil)
	empty.ApplyGoal(decimal.Zero)
	assert.True(t, empty.ProgressPercent.IsZero())
	assert.Nil(t, empty.FirstDate)
}
