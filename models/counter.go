package models

import "time"

// Counter stores the high-water mark of a named id sequence.
type Counter struct {
	Name      string    `gorm:"primaryKey;size:64" json:"name"`
	Seq       int64     `gorm:"not null;default:0" json:"seq"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (Counter) TableName() string { return "counters" }
