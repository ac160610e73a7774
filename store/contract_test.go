package store

import (
	"context"
	"testing"
	"time"

	"earnings/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func earning(amount string, desc string, y int, m time.Month, d int) models.Earning {
	return models.Earning{Amount: decimal.RequireFromString(amount), Description: desc, Date: models.NewDate(y, m, d)}
}

// runContract exercises a Store that starts out empty.
func runContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("create assigns distinct ids and list orders by date desc", func(t *testing.T) {
		st := newStore(t)
		sess := st.Session(ctx)
		defer sess.Close()

		in := []models.Earning{
			earning("150.00", "Freelance", 2024, time.January, 15),
			earning("80.5", "Gift", 2024, time.March, 2),
			earning("20", "Refund", 2023, time.December, 30),
		}
		seen := map[uint]bool{}
		for i := range in {
			require.NoError(t, sess.Create(&in[i]))
			require.NotZero(t, in[i].ID)
			require.False(t, seen[in[i].ID], "duplicate id %d", in[i].ID)
			seen[in[i].ID] = true
		}

		rows, err := sess.List()
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "2024-03-02", rows[0].Date.String())
		assert.Equal(t, "2024-01-15", rows[1].Date.String())
		assert.Equal(t, "2023-12-30", rows[2].Date.String())

		got, err := sess.Get(in[0].ID)
		require.NoError(t, err)
		assert.True(t, got.Amount.Equal(decimal.NewFromInt(150)))
		assert.Equal(t, "Freelance", got.Description)
		assert.Equal(t, "2024-01-15", got.Date.String())
	})

	t.Run("delete removes one row and unknown id is a no-op", func(t *testing.T) {
		st := newStore(t)
		sess := st.Session(ctx)
		defer sess.Close()

		a := earning("10", "a", 2024, time.May, 1)
		b := earning("20", "b", 2024, time.May, 2)
		require.NoError(t, sess.Create(&a))
		require.NoError(t, sess.Create(&b))

		n, err := sess.Delete(a.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		n, err = sess.Delete(a.ID + b.ID + 1000)
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)

		n, err = sess.Delete(^uint(0))
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)
		_, err = sess.Get(^uint(0))
		assert.ErrorIs(t, err, ErrNotFound)

		rows, err := sess.List()
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, b.ID, rows[0].ID)

		_, err = sess.Get(a.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("clear empties the table including when already empty", func(t *testing.T) {
		st := newStore(t)
		sess := st.Session(ctx)
		defer sess.Close()

		n, err := sess.Clear()
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)

		for i := 1; i <= 4; i++ {
			e := earning("1", "x", 2024, time.June, i)
			require.NoError(t, sess.Create(&e))
		}
		n, err = sess.Clear()
		require.NoError(t, err)
		assert.EqualValues(t, 4, n)

		rows, err := sess.List()
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("range and stats", func(t *testing.T) {
		st := newStore(t)
		sess := st.Session(ctx)
		defer sess.Close()

		for _, e := range []models.Earning{
			earning("100", "jan", 2024, time.January, 31),
			earning("200", "feb", 2024, time.February, 1),
			earning("300", "mar", 2024, time.March, 1),
		} {
			e := e
			require.NoError(t, sess.Create(&e))
		}

		rows, err := sess.ListRange(models.NewDate(2024, time.February, 1), models.NewDate(2024, time.March, 1))
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "mar", rows[0].Description)
		assert.Equal(t, "feb", rows[1].Description)

		stats, err := sess.Stats()
		require.NoError(t, err)
		assert.EqualValues(t, 3, stats.Count)
		assert.True(t, stats.Total.Equal(decimal.NewFromInt(600)))
		assert.True(t, stats.Average.Equal(decimal.NewFromInt(200)))
		assert.True(t, stats.Min.Equal(decimal.NewFromInt(100)))
		assert.True(t, stats.Max.Equal(decimal.NewFromInt(300)))
		require.NotNil(t, stats.FirstDate)
		assert.Equal(t, "2024-01-31", stats.FirstDate.String())
		assert.Equal(t, "2024-03-01", stats.LastDate.String())
	})

	t.Run("create all assigns ids to every row", func(t *testing.T) {
		st := newStore(t)
		sess := st.Session(ctx)
		defer sess.Close()

		batch := []models.Earning{
			earning("5", "one", 2024, time.August, 1),
			earning("6", "two", 2024, time.August, 2),
		}
		require.NoError(t, sess.CreateAll(batch))
		assert.NotZero(t, batch[0].ID)
		assert.NotZero(t, batch[1].ID)
		assert.NotEqual(t, batch[0].ID, batch[1].ID)
		require.NoError(t, sess.CreateAll(nil))

		rows, err := sess.List()
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "two", rows[0].Description)
	})

	t.Run("closed session refuses work", func(t *testing.T) {
		st := newStore(t)
		sess := st.Session(ctx)
		require.NoError(t, sess.Close())

		_, err := sess.List()
		assert.ErrorIs(t, err, ErrSessionClosed)
		e := earning("1", "late", 2024, time.July, 1)
		assert.ErrorIs(t, sess.Create(&e), ErrSessionClosed)
		assert.ErrorIs(t, sess.Close(), ErrSessionClosed)
	})
}
