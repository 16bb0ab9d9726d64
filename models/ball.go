package models

// Extra kinds. WIDE and NOBALL make the delivery illegal (it does not count
// toward the over); BYE and LEGBYE are legal deliveries with extra runs.
const (
	ExtraNone   = "NONE"
	ExtraWide   = "WIDE"
	ExtraNoBall = "NOBALL"
	ExtraBye    = "BYE"
	ExtraLegBye = "LEGBYE"
)

// Ball records a single delivery. Immutable once created — corrections are
// not supported, a mis-scored ball stays in the book.
type Ball struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	OverID       string `gorm:"not null;index" json:"over_id"`
	Seq          int    `gorm:"not null" json:"seq"`
	BatsmanID    string `gorm:"not null" json:"batsman_id"`
	NonStrikerID string `gorm:"not null" json:"non_striker_id"`
	BowlerID     string `gorm:"not null" json:"bowler_id"`

	Runs      int    `json:"runs" gorm:"default:0"` // off the bat
	ExtraType string `json:"extra_type" gorm:"type:varchar(8);default:'NONE'"`
	ExtraRuns int    `json:"extra_runs" gorm:"default:0"`
	IsLegal   bool   `json:"is_legal"` // derived: false iff WIDE/NOBALL

	// Wicket details (optional)
	WicketType         *string `json:"wicket_type,omitempty" gorm:"type:varchar(24)"`
	DismissedBatsmanID *string `json:"dismissed_batsman_id,omitempty"`
	FielderID          *string `json:"fielder_id,omitempty"`

	Commentary *string `json:"commentary,omitempty" gorm:"type:text"`

	Timestamps
}

// IsLegalDelivery reports whether a delivery with the given extra kind counts
// toward the six-ball over limit.
func IsLegalDelivery(extraType string) bool {
	return extraType != ExtraWide && extraType != ExtraNoBall
}

// ValidExtraType reports whether the given extra kind is one of the five
// recognized values.
func ValidExtraType(extraType string) bool {
	switch extraType {
	case ExtraNone, ExtraWide, ExtraNoBall, ExtraBye, ExtraLegBye:
		return true
	}
	return false
}
