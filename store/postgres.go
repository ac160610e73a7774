package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"earnings/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options tunes the connection pool. Zero values keep database/sql defaults.
type Options struct {
	// SSLMode is added to the DSN when it does not name one already.
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Logger          logger.Interface
}

// Postgres is the GORM-backed Store.
type Postgres struct {
	db    *gorm.DB
	sqlDB *sql.DB
}

// OpenPostgres connects to dsn and verifies the connection with a ping.
func OpenPostgres(ctx context.Context, dsn string, opts Options) (*Postgres, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	cfg := &gorm.Config{}
	if opts.Logger != nil {
		cfg.Logger = opts.Logger
	}
	gdb, err := gorm.Open(postgres.Open(WithSSLMode(dsn, opts.SSLMode)), cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{db: gdb, sqlDB: sqlDB}, nil
}

// WithSSLMode returns dsn with sslmode set to mode unless the DSN already
// carries an sslmode. Both URL and keyword/value DSNs are understood.
func WithSSLMode(dsn, mode string) string {
	if mode == "" {
		return dsn
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return dsn
		}
		q := u.Query()
		if q.Get("sslmode") != "" {
			return dsn
		}
		q.Set("sslmode", mode)
		u.RawQuery = q.Encode()
		return u.String()
	}
	if strings.Contains(dsn, "sslmode=") {
		return dsn
	}
	return strings.TrimSpace(dsn) + " sslmode=" + mode
}

// SSLModeOf returns the sslmode the connection will use for dsn once
// WithSSLMode has applied mode, or "" when neither names one.
func SSLModeOf(dsn, mode string) string {
	dsn = WithSSLMode(dsn, mode)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return ""
		}
		return u.Query().Get("sslmode")
	}
	for _, f := range strings.Fields(dsn) {
		if v, ok := strings.CutPrefix(f, "sslmode="); ok {
			return v
		}
	}
	return ""
}

// PlaintextSSLMode reports whether mode lets the driver connect without TLS.
func PlaintextSSLMode(mode string) bool {
	return mode == "disable" || mode == "allow"
}

// Migrate creates or updates the earnings table.
func (p *Postgres) Migrate() error {
	if err := p.db.AutoMigrate(&models.Earning{}); err != nil {
		return fmt.Errorf("migrate earnings: %w", err)
	}
	return nil
}

// ResetSequence restarts the id sequence of an empty earnings table so the
// next insert gets id 1.
func (p *Postgres) ResetSequence(ctx context.Context) error {
	return p.db.WithContext(ctx).Exec(`ALTER SEQUENCE IF EXISTS earnings_id_seq RESTART WITH 1`).Error
}

func (p *Postgres) Session(ctx context.Context) Session {
	return &pgSession{db: p.db.WithContext(ctx)}
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.sqlDB.PingContext(ctx)
}

func (p *Postgres) Close() error {
	return p.sqlDB.Close()
}

type pgSession struct {
	db     *gorm.DB
	closed bool
}

func (s *pgSession) List() ([]models.Earning, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	rows := []models.Earning{}
	if err := s.db.Order("date desc").Order("id desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list earnings: %w", err)
	}
	return rows, nil
}

func (s *pgSession) ListRange(start, end models.Date) ([]models.Earning, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	rows := []models.Earning{}
	err := s.db.Where("date BETWEEN ? AND ?", start, end).
		Order("date desc").Order("id desc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list earnings %s..%s: %w", start, end, err)
	}
	return rows, nil
}

func (s *pgSession) Get(id uint) (models.Earning, error) {
	if s.closed {
		return models.Earning{}, ErrSessionClosed
	}
	if !inRange(id) {
		return models.Earning{}, ErrNotFound
	}
	var e models.Earning
	res := s.db.Where("id = ?", id).Limit(1).Find(&e)
	if res.Error != nil {
		return models.Earning{}, fmt.Errorf("get earning %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return models.Earning{}, ErrNotFound
	}
	return e, nil
}

func (s *pgSession) Create(e *models.Earning) error {
	if s.closed {
		return ErrSessionClosed
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(e).Error
	})
	if err != nil {
		return fmt.Errorf("create earning: %w", err)
	}
	return nil
}

func (s *pgSession) CreateAll(es []models.Earning) error {
	if s.closed {
		return ErrSessionClosed
	}
	if len(es) == 0 {
		return nil
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&es, 100).Error
	})
	if err != nil {
		return fmt.Errorf("create %d earnings: %w", len(es), err)
	}
	return nil
}

func (s *pgSession) Delete(id uint) (int64, error) {
	if s.closed {
		return 0, ErrSessionClosed
	}
	if !inRange(id) {
		return 0, nil
	}
	var n int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&models.Earning{})
		n = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, fmt.Errorf("delete earning %d: %w", id, err)
	}
	return n, nil
}

func (s *pgSession) Clear() (int64, error) {
	if s.closed {
		return 0, ErrSessionClosed
	}
	var n int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Earning{})
		n = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, fmt.Errorf("clear earnings: %w", err)
	}
	return n, nil
}

func (s *pgSession) Stats() (models.Stats, error) {
	if s.closed {
		return models.Stats{}, ErrSessionClosed
	}
	var row struct {
		Count     int64
		Total     decimal.Decimal
		Average   decimal.Decimal
		Min       decimal.Decimal
		Max       decimal.Decimal
		FirstDate *models.Date
		LastDate  *models.Date
	}
	err := s.db.Model(&models.Earning{}).
		Select(`COUNT(*) AS count,
			COALESCE(SUM(amount), 0) AS total,
			COALESCE(ROUND(AVG(amount), 2), 0) AS average,
			COALESCE(MIN(amount), 0) AS min,
			COALESCE(MAX(amount), 0) AS max,
			MIN(date) AS first_date,
			MAX(date) AS last_date`).
		Scan(&row).Error
	if err != nil {
		return models.Stats{}, fmt.Errorf("earnings stats: %w", err)
	}
	return models.Stats{
		Count:     row.Count,
		Total:     row.Total,
		Average:   row.Average,
		Min:       row.Min,
		Max:       row.Max,
		FirstDate: row.FirstDate,
		LastDate:  row.LastDate,
	}, nil
}

func (s *pgSession) Close() error {
	if s.closed {
		return ErrSessionClosed
	}
	s.closed = true
	s.db = nil
	return nil
}
