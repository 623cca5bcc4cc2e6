package dto

import (
	"time"

	"github.com/google/uuid"
)

type InstitutionRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
	Contact string `json:"contact"`
}

type LendRequest struct {
	InstitutionID uuid.UUID   `json:"institution_id" binding:"required"`
	CopyIDs       []uuid.UUID `json:"copy_ids" binding:"required,min=1"`
	DueDate       time.Time   `json:"due_date" binding:"required"`
}

type LoanResponse struct {
	ID          uuid.UUID  `json:"id"`
	NoInduk     string     `json:"no_induk"`
	Institution string     `json:"institution"`
	LoanDate    time.Time  `json:"loan_date"`
	DueDate     time.Time  `json:"due_date"`
	ReturnDate  *time.Time `json:"return_date,omitempty"`
	Status      string     `json:"status"`
}
