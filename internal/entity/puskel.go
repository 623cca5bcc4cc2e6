package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	LoanActive   = "active"
	LoanReturned = "returned"
)

// Institution is an external borrower served by the mobile library.
type Institution struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:150;not null" json:"name"`
	Address   *string   `gorm:"type:text" json:"address,omitempty"`
	Contact   *string   `gorm:"size:100" json:"contact,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (i *Institution) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID, err = uuid.NewV7()
	}
	return
}

// PuskelLoan lends one copy to one institution. A copy has at most one
// active loan at a time; the service checks before creating.
type PuskelLoan struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	CopyID        uuid.UUID   `gorm:"type:uuid;not null;index" json:"copy_id"`
	Copy          BookCopy    `gorm:"foreignKey:CopyID;constraint:OnDelete:CASCADE" json:"copy"`
	InstitutionID uuid.UUID   `gorm:"type:uuid;not null;index" json:"institution_id"`
	Institution   Institution `gorm:"constraint:OnDelete:CASCADE" json:"institution"`
	LoanDate      time.Time   `gorm:"not null" json:"loan_date"`
	DueDate       time.Time   `gorm:"not null" json:"due_date"`
	ReturnDate    *time.Time  `json:"return_date,omitempty"`
	Status        string      `gorm:"size:20;not null;default:active" json:"status"`
	CreatedAt     time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (l *PuskelLoan) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == uuid.Nil {
		l.ID, err = uuid.NewV7()
	}
	return
}
