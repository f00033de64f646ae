package models

// User represents a user in the system.
type User struct {
	ID       uint   `gorm:"primaryKey"`
	Email    string `gorm:"size:255;uniqueIndex;not null" validate:"required,email,max=255"`
	Login    string `gorm:"size:255;uniqueIndex;not null" validate:"required,nowhitespace,max=255"`
	Name     string `gorm:"size:255;not null" validate:"max=255"`
	Birthday Date   `validate:"notfuture"`
}
