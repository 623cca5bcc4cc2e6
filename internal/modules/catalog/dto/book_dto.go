package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/perpusda/sipus/internal/entity"
	commonDto "github.com/perpusda/sipus/pkg/dto"
)

type BookRequest struct {
	Title            string     `json:"title" binding:"required"`
	Edition          string     `json:"edition"`
	PublishYear      string     `json:"publish_year"`
	PublishPlace     string     `json:"publish_place"`
	PhysicalDesc     string     `json:"physical_description"`
	ISBN             string     `json:"isbn"`
	CallNumber       string     `json:"call_number"`
	Language         string     `json:"language"`
	ShelfLocation    string     `json:"shelf_location"`
	Abstract         string     `json:"abstract"`
	Notes            string     `json:"notes"`
	Category         string     `json:"category" binding:"required"`
	Writers          []string   `json:"writers" binding:"required,min=1"`
	Editors          []string   `json:"editors"`
	PersonsInCharge  []string   `json:"persons_in_charge"`
	Publishers       []string   `json:"publishers" binding:"required,min=1"`
	Subjects         []string   `json:"subjects" binding:"required,min=1"`
	AccessionNumbers []string   `json:"accession_numbers" binding:"required,min=1"`
	Image            string     `json:"image"` // URL to download or existing filename
	RoomID           *uuid.UUID `json:"room_id"`
}

type RelocateRequest struct {
	NewLocation       string      `json:"new_location" binding:"required"`
	IDs               []uuid.UUID `json:"ids"`
	AllMatchingFilter bool        `json:"all_matching_filter"`
	ExcludeIDs        []uuid.UUID `json:"exclude_ids"`
}

type NamedRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type AuthorRole struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Role string    `json:"role"`
}

type CopyResponse struct {
	ID        uuid.UUID `json:"id"`
	NoInduk   string    `json:"no_induk"`
	NoBarcode *string   `json:"no_barcode,omitempty"`
	Status    string    `json:"status"`
}

type BookResponse struct {
	ID             uuid.UUID    `json:"id"`
	Title          string       `json:"title"`
	Edition        *string      `json:"edition,omitempty"`
	PublishYear    *string      `json:"publish_year,omitempty"`
	PublishPlace   *string      `json:"publish_place,omitempty"`
	PhysicalDesc   *string      `json:"physical_description,omitempty"`
	ISBN           *string      `json:"isbn,omitempty"`
	CallNumber     *string      `json:"call_number,omitempty"`
	Language       *string      `json:"language,omitempty"`
	ShelfLocation  *string      `json:"shelf_location,omitempty"`
	Abstract       *string      `json:"abstract,omitempty"`
	Notes          *string      `json:"notes,omitempty"`
	Image          *string      `json:"image,omitempty"`
	Category       *NamedRef    `json:"category,omitempty"`
	Room           *NamedRef    `json:"room,omitempty"`
	Authors        []AuthorRole `json:"authors"`
	Publishers     []NamedRef   `json:"publishers"`
	Subjects       []NamedRef   `json:"subjects"`
	Copies         []CopyResponse `json:"copies"`
	StockTotal     int          `json:"stock_total"`
	StockAvailable int          `json:"stock_available"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

type BookListResponse struct {
	Data        []BookResponse           `json:"data"`
	Meta        commonDto.PaginationMeta `json:"meta"`
	TotalCopies int64                    `json:"total_copies"`
}

// FromEntity flattens a preloaded book into its response form.
func FromEntity(b *entity.Book) BookResponse {
	resp := BookResponse{
		ID:             b.ID,
		Title:          b.Title,
		Edition:        b.Edition,
		PublishYear:    b.PublishYear,
		PublishPlace:   b.PublishPlace,
		PhysicalDesc:   b.PhysicalDesc,
		ISBN:           b.ISBN,
		CallNumber:     b.CallNumber,
		Language:       b.Language,
		ShelfLocation:  b.ShelfLocation,
		Abstract:       b.Abstract,
		Notes:          b.Notes,
		Image:          b.Image,
		Authors:        []AuthorRole{},
		Publishers:     []NamedRef{},
		Subjects:       []NamedRef{},
		Copies:         []CopyResponse{},
		StockTotal:     b.StockTotal,
		StockAvailable: b.StockAvailable,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}

	if b.Category != nil {
		resp.Category = &NamedRef{ID: b.Category.ID, Name: b.Category.Name}
	}
	if b.Room != nil {
		resp.Room = &NamedRef{ID: b.Room.ID, Name: b.Room.Name}
	}
	for _, link := range b.Authors {
		resp.Authors = append(resp.Authors, AuthorRole{
			ID:   link.AuthorID,
			Name: link.Author.Name,
			Role: link.Role,
		})
	}
	for _, p := range b.Publishers {
		resp.Publishers = append(resp.Publishers, NamedRef{ID: p.ID, Name: p.Name})
	}
	for _, s := range b.Subjects {
		resp.Subjects = append(resp.Subjects, NamedRef{ID: s.ID, Name: s.Name})
	}
	for _, c := range b.Copies {
		resp.Copies = append(resp.Copies, CopyResponse{
			ID:        c.ID,
			NoInduk:   c.NoInduk,
			NoBarcode: c.NoBarcode,
			Status:    c.Status,
		})
	}

	return resp
}
