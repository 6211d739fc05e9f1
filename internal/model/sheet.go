package model

import "time"

// SheetRow stores one spreadsheet-style row for the sqlite workbook backend.
// Cells holds the JSON-encoded column values in tab order.
type SheetRow struct {
	ID        uint   `gorm:"primaryKey"`
	Tab       string `gorm:"index:idx_tab_position,unique"`
	Position  int    `gorm:"index:idx_tab_position,unique"`
	Cells     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CalendarEvent is an artifact created by the local calendar backend.
type CalendarEvent struct {
	ID          string `gorm:"primaryKey"`
	Summary     string
	Description string
	Location    string
	StartAt     time.Time `gorm:"index"`
	EndAt       time.Time
	TimeZone    string
	// Reminders holds comma-separated minutes before start.
	Reminders string
	CreatedAt time.Time
}
