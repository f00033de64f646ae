package models

import "time"

// FriendshipStatus defines the state of one direction of a relationship between two users.
type FriendshipStatus string

const (
	// StatusNone means there is no edge in this direction. It is never stored.
	StatusNone FriendshipStatus = ""

	// StatusApplication means the owner of the edge asked the other user to be friends
	// and is waiting for them to reciprocate.
	StatusApplication FriendshipStatus = "APPLICATION"

	// StatusSubscription is a one-way follow without a pending request of its own.
	StatusSubscription FriendshipStatus = "SUBSCRIPTION"

	// StatusFriendship means both users agreed. Both directions carry it.
	StatusFriendship FriendshipStatus = "FRIENDSHIP"
)

// UserRelation represents one directed edge of the relationship between two users.
// The primary key is a composite of (FromUserID, ToUserID) to ensure uniqueness.
type UserRelation struct {
	FromUserID uint             `gorm:"primaryKey"`
	ToUserID   uint             `gorm:"primaryKey"`
	Status     FriendshipStatus `gorm:"type:varchar(20);not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Define foreign key relationships
	FromUser User `gorm:"foreignKey:FromUserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	ToUser   User `gorm:"foreignKey:ToUserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
