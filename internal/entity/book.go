package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Author roles on a book. The same author can appear on one book under
// several roles.
const (
	RolePenulis         = "penulis"
	RoleEditor          = "editor"
	RolePenanggungJawab = "penanggung jawab"
)

// Copy statuses. Puskel statuses belong to the mobile-library channel.
const (
	CopyAvailable       = "available"
	CopyLoaned          = "loaned"
	CopyDamaged         = "damaged"
	CopyLost            = "lost"
	CopyPuskelAvailable = "available_puskel"
	CopyPuskelLoaned    = "loaned_institution"
)

type Book struct {
	ID             uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Title          string       `gorm:"size:255;not null;index" json:"title"`
	Edition        *string      `gorm:"size:100" json:"edition,omitempty"`
	PublishYear    *string      `gorm:"size:20" json:"publish_year,omitempty"`
	PublishPlace   *string      `gorm:"size:150" json:"publish_place,omitempty"`
	PhysicalDesc   *string      `gorm:"size:255" json:"physical_description,omitempty"`
	ISBN           *string      `gorm:"size:50" json:"isbn,omitempty"`
	CallNumber     *string      `gorm:"size:100" json:"call_number,omitempty"`
	Language       *string      `gorm:"size:50" json:"language,omitempty"`
	ShelfLocation  *string      `gorm:"size:100" json:"shelf_location,omitempty"`
	Abstract       *string      `gorm:"type:text" json:"abstract,omitempty"`
	Notes          *string      `gorm:"type:text" json:"notes,omitempty"`
	Image          *string      `gorm:"size:255" json:"image,omitempty"`
	CategoryID     *uuid.UUID   `gorm:"type:uuid;index" json:"category_id"`
	Category       *Category    `gorm:"constraint:OnDelete:SET NULL" json:"category,omitempty"`
	RoomID         *uuid.UUID   `gorm:"type:uuid;index" json:"room_id,omitempty"`
	Room           *Room        `gorm:"constraint:OnDelete:SET NULL" json:"room,omitempty"`
	StockTotal     int          `gorm:"default:0" json:"stock_total"`
	StockAvailable int          `gorm:"default:0" json:"stock_available"`
	Authors        []BookAuthor `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE" json:"authors,omitempty"`
	Publishers     []Publisher  `gorm:"many2many:book_publishers;constraint:OnDelete:CASCADE" json:"publishers,omitempty"`
	Subjects       []Subject    `gorm:"many2many:book_subjects;constraint:OnDelete:CASCADE" json:"subjects,omitempty"`
	Copies         []BookCopy   `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE" json:"copies,omitempty"`
	CreatedAt      time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (b *Book) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID, err = uuid.NewV7()
	}
	return
}

// BookAuthor links a book to an author under one role. There is no unique
// constraint on (book, author, role); writers must check before linking.
type BookAuthor struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookID    uuid.UUID `gorm:"type:uuid;not null;index" json:"book_id"`
	AuthorID  uuid.UUID `gorm:"type:uuid;not null;index" json:"author_id"`
	Author    Author    `gorm:"constraint:OnDelete:CASCADE" json:"author"`
	Role      string    `gorm:"size:30;not null" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (ba *BookAuthor) BeforeCreate(tx *gorm.DB) (err error) {
	if ba.ID == uuid.Nil {
		ba.ID, err = uuid.NewV7()
	}
	return
}

// BookCopy is one physical exemplar. NoInduk is the accession number and is
// unique across the whole system.
type BookCopy struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookID    uuid.UUID `gorm:"type:uuid;not null;index" json:"book_id"`
	NoInduk   string    `gorm:"size:50;uniqueIndex;not null" json:"no_induk"`
	NoBarcode *string   `gorm:"size:50;uniqueIndex" json:"no_barcode,omitempty"`
	Status    string    `gorm:"size:40;not null;default:available" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *BookCopy) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID, err = uuid.NewV7()
	}
	return
}
