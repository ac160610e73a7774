package models

import "github.com/shopspring/decimal"

func init() {
	// amounts go out as JSON numbers, e.g. 150.5 rather than "150.5"
	decimal.MarshalJSONWithoutQuotes = true
}

// Earning is one stored monetary gain.
type Earning struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Amount      decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"amount"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Date        Date            `gorm:"not null;index" json:"date"`
}

// TableName pins the table name regardless of GORM's naming strategy.
func (Earning) TableName() string { return "earnings" }

// EarningInput is the validated body of a create request. Pointers let the
// `required` rule tell a missing field apart from a zero value.
type EarningInput struct {
	Amount      *decimal.Decimal `json:"amount" binding:"required,amount"`
	Description string           `json:"description" binding:"required,notblank,max=255"`
	Date        *Date            `json:"date" binding:"required"`
}

// ToEarning maps a validated input onto a new, unsaved Earning.
// It must only be called after validation succeeded.
func (in EarningInput) ToEarning() Earning {
	return Earning{
		Amount:      *in.Amount,
		Description: in.Description,
		Date:        *in.Date,
	}
}
