package postgres

import "time"

// KlineRecord is a closed candle. (symbol, interval, open_time) is unique;
// re-archiving the same bar overwrites its values.
type KlineRecord struct {
	ID uint `gorm:"primaryKey"`

	Symbol   string    `gorm:"type:text;not null;index:idx_kline_symbol;index:idx_symbol_interval_open,unique"`
	Interval string    `gorm:"type:varchar(10);not null;index:idx_symbol_interval_open,unique"`
	OpenTime time.Time `gorm:"not null;index:idx_symbol_interval_open,unique"`

	CloseTime time.Time `gorm:"not null"`

	Open  float64 `gorm:"type:numeric;not null"`
	Close float64 `gorm:"type:numeric;not null"`
	High  float64 `gorm:"type:numeric;not null"`
	Low   float64 `gorm:"type:numeric;not null"`

	Volume float64 `gorm:"type:numeric;not null"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// TableName overrides the default table name for GORM.
func (KlineRecord) TableName() string {
	return "kline_record"
}
