package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (p *Product) BeforeCreate(tx *gorm.DB) error          { ensureID(&p.ID); return nil }
func (r *Rating) BeforeCreate(tx *gorm.DB) error           { ensureID(&r.ID); return nil }
func (ci *CartItem) BeforeCreate(tx *gorm.DB) error        { ensureID(&ci.ID); return nil }
func (w *WishlistItem) BeforeCreate(tx *gorm.DB) error     { ensureID(&w.ID); return nil }
func (o *Order) BeforeCreate(tx *gorm.DB) error            { ensureID(&o.ID); return nil }
func (oi *OrderItem) BeforeCreate(tx *gorm.DB) error       { ensureID(&oi.ID); return nil }
func (h *OrderStatusEntry) BeforeCreate(tx *gorm.DB) error { ensureID(&h.ID); return nil }
func (u *User) BeforeCreate(tx *gorm.DB) error             { ensureID(&u.ID); return nil }
func (rt *RefreshToken) BeforeCreate(tx *gorm.DB) error    { ensureID(&rt.ID); return nil }
func (c *Coupon) BeforeCreate(tx *gorm.DB) error           { ensureID(&c.ID); return nil }

// All lists every table for AutoMigrate in tests and local development.
func All() []any {
	return []any{
		&User{}, &RefreshToken{},
		&Product{}, &Rating{},
		&CartItem{}, &WishlistItem{}, &Coupon{},
		&Order{}, &OrderItem{}, &OrderStatusEntry{},
	}
}
