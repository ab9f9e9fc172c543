// Package model holds the gorm models of the annotator database.
package model

import "time"

// User is one row of the user registry.
type User struct {
	Id             int    `gorm:"primaryKey;autoIncrement"`
	NormalizedName string `gorm:"uniqueIndex;not null"`
	Username       string `gorm:"not null"`
	RegisteredAt   time.Time
	LoginCount     int `gorm:"default:0"`
	LastLogin      *time.Time
}
