package dto

import "time"

// CreateBranchRequest entrada para crear una sucursal.
type CreateBranchRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=200"`
	Address string `json:"address"`
}

// BranchResponse salida de una sucursal.
type BranchResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BranchListResponse lista paginada de sucursales.
type BranchListResponse struct {
	Items []BranchResponse `json:"items"`
	Page  PageResponse     `json:"page"`
}
