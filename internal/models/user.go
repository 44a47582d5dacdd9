package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TierBronze   = "bronze"
	TierSilver   = "silver"
	TierGold     = "gold"
	TierPlatinum = "platinum"
)

// MembershipTier maps cumulative spend to a tier.
func MembershipTier(totalSpent float64) string {
	switch {
	case totalSpent >= 100000:
		return TierPlatinum
	case totalSpent >= 50000:
		return TierGold
	case totalSpent >= 10000:
		return TierSilver
	default:
		return TierBronze
	}
}

type Address struct {
	Label      string `json:"label,omitempty"`
	FullName   string `json:"fullName,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country"`
	IsDefault  bool   `json:"isDefault"`
}

type User struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"          json:"id"`
	Name           string    `gorm:"not null"                      json:"name"`
	Email          string    `gorm:"not null;uniqueIndex"          json:"email"`
	PasswordHash   string    `gorm:"not null"                      json:"-"`
	Role           string    `gorm:"not null;default:'user'"       json:"role"`
	Phone          string    `gorm:"not null;default:''"           json:"phone,omitempty"`
	Addresses      []Address `gorm:"type:text;serializer:json"     json:"addresses"`
	TotalSpent     float64   `gorm:"not null;default:0"            json:"totalSpent"`
	MembershipTier string    `gorm:"not null;default:'bronze'"     json:"membershipTier"`
	IsActive       bool      `gorm:"not null"                      json:"isActive"`
	CreatedAt      time.Time `                                     json:"createdAt"`
	UpdatedAt      time.Time `                                     json:"updatedAt"`
}

type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"       json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"   json:"userId"`
	TokenHash string    `gorm:"not null;uniqueIndex"       json:"-"`
	JTI       string    `gorm:"not null;uniqueIndex"       json:"jti"`
	ExpiresAt time.Time `gorm:"not null"                   json:"expiresAt"`
	Revoked   bool      `gorm:"not null;default:false"     json:"revoked"`
	CreatedAt time.Time `                                  json:"createdAt"`
}
