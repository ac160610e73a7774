package store

import (
	"context"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Postgres tests are opt-in. Set DB_DSN_TEST=1 and DATABASE_URL to run them.
// They delete every row in the earnings table.
func openTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("postgres tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	sslmode := os.Getenv("DB_SSLMODE")
	if sslmode == "" {
		sslmode = "disable"
	}
	p, err := OpenPostgres(context.Background(), os.Getenv("DATABASE_URL"), Options{SSLMode: sslmode})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	require.NoError(t, p.Migrate())

	sess := p.Session(context.Background())
	_, err = sess.Clear()
	require.NoError(t, err)
	require.NoError(t, sess.Close())
	return p
}

func TestPostgresContract(t *testing.T) {
	runContract(t, func(t *testing.T) Store { return openTestPostgres(t) })
}

func TestPostgresResetSequence(t *testing.T) {
	p := openTestPostgres(t)
	ctx := context.Background()
	require.NoError(t, p.ResetSequence(ctx))

	sess := p.Session(ctx)
	defer sess.Close()
	e := earning("150.00", "Freelance", 2024, 1, 15)
	require.NoError(t, sess.Create(&e))
	assert.EqualValues(t, 1, e.ID)
}

func TestWithSSLMode(t *testing.T) {
	cases := []struct{ dsn, mode, want string }{
		{"postgres://u:p@db:5432/app", "require", "postgres://u:p@db:5432/app?sslmode=require"},
		{"postgres://u:p@db:5432/app?sslmode=verify-full", "require", "postgres://u:p@db:5432/app?sslmode=verify-full"},
		{"host=db user=u dbname=app", "require", "host=db user=u dbname=app sslmode=require"},
		{"host=db sslmode=disable", "require", "host=db sslmode=disable"},
		{"postgres://db/app", "", "postgres://db/app"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, WithSSLMode(c.dsn, c.mode), c.dsn)
	}
}

func TestSSLModeOf(t *testing.T) {
	cases := []struct{ dsn, mode, want string }{
		{"postgres://u:p@db:5432/app", "require", "require"},
		{"postgres://u:p@db:5432/app?sslmode=disable", "require", "disable"},
		{"host=db sslmode=allow dbname=app", "require", "allow"},
		{"host=db dbname=app", "verify-full", "verify-full"},
		{"postgres://db/app", "", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, SSLModeOf(c.dsn, c.mode), c.dsn)
	}
	assert.True(t, PlaintextSSLMode("disable"))
	assert.True(t, PlaintextSSLMode("allow"))
	assert.False(t, PlaintextSSLMode("require"))
	assert.False(t, PlaintextSSLMode(""))
}

func TestOutOfRangeIDsNeverReachTheDatabase(t *testing.T) {
	assert.True(t, inRange(1))
	assert.True(t, inRange(uint(math.MaxInt)))
	assert.False(t, inRange(^uint(0)))
}
