package model

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Sku         string     `json:"sku"`
	Price       float64    `json:"price"`
	CategoryID  *uuid.UUID `json:"category_id,omitempty"`
	// CategoryName is populated on reads that join the category.
	CategoryName string    `json:"category_name,omitempty"`
	ImagePath    string    `json:"image_path,omitempty"`
	CreatedBy    uuid.UUID `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
