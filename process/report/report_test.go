package report

import (
	"bytes"
	"context"
	"testing"
	"time"

	"earnings/models"
	"earnings/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthBounds(t *testing.T) {
	start, end, err := MonthBounds("2024-02")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", start.String())
	assert.Equal(t, "2024-02-29", end.String())

	_, _, err = MonthBounds("02/2024")
	assert.Error(t, err)
}

func TestRunSummarisesOneMonth(t *testing.T) {
	mem := store.NewMemory()
	sess := mem.Session(context.Background())
	defer sess.Close()
	for _, e := range []models.Earning{
		{Amount: decimal.RequireFromString("10.5"), Description: "in", Date: models.NewDate(2024, time.March, 1)},
		{Amount: decimal.RequireFromString("4.5"), Description: "also in", Date: models.NewDate(2024, time.March, 31)},
		{Amount: decimal.RequireFromString("99"), Description: "out", Date: models.NewDate(2024, time.April, 1)},
	} {
		e := e
		require.NoError(t, sess.Create(&e))
	}

	var buf bytes.Buffer
	require.NoError(t, Run(sess, "2024-03", true, &buf))
	assert.Equal(t,
		"Report for month=2024-03 (2024-03-01..2024-03-31):\n"+
			"  records=2 total_amount=15.00\n"+
			"1|2024-03-01|10.50|in\n"+
			"2|2024-03-31|4.50|also in\n",
		buf.String())

	buf.Reset()
	require.NoError(t, Run(sess, "2023-01", false, &buf))
	assert.Contains(t, buf.String(), "records=0 total_amount=0.00")
}
