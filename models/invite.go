package models

import "time"

// Invite is a single-use, mailed registration token. GrantsAdmin invites are the only way
// an account becomes admin at sign-up.
type Invite struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Email       string     `gorm:"index;size:255;not null" json:"email"`
	Token       string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	GrantsAdmin bool       `gorm:"not null;default:false" json:"grantsAdmin"`
	ExpiresAt   time.Time  `gorm:"index;not null" json:"expiresAt"`
	UsedAt      *time.Time `json:"usedAt,omitempty"`
	UsedBy      *string    `gorm:"type:uuid" json:"usedBy,omitempty"`
	CreatedBy   string     `gorm:"size:255" json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (Invite) TableName() string {
	return "pte_invites"
}
