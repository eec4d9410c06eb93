package entity

import "time"

// Branch representa una sucursal física con inventario propio.
type Branch struct {
	ID        string
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
