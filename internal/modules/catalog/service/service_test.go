package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/perpusda/sipus/internal/entity"
	"github.com/perpusda/sipus/internal/modules/catalog/dto"
	catalogRepo "github.com/perpusda/sipus/internal/modules/catalog/repository"
	masterRepo "github.com/perpusda/sipus/internal/modules/masterdata/repository"
	"github.com/perpusda/sipus/internal/scope"
	"github.com/perpusda/sipus/pkg/apperror"
	"github.com/perpusda/sipus/pkg/storage"
)

type fixture struct {
	db      *gorm.DB
	service CatalogService
	images  storage.ImageStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&entity.User{},
		&entity.Room{},
		&entity.Category{},
		&entity.Author{},
		&entity.Publisher{},
		&entity.Subject{},
		&entity.Book{},
		&entity.BookAuthor{},
		&entity.BookCopy{},
	))

	images, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	fetcher := storage.NewFetcher(images, time.Second, 400)

	service := NewCatalogService(db, catalogRepo.NewRepository(db), masterRepo.NewRepository(db), images, fetcher, nil)
	return &fixture{db: db, service: service, images: images}
}

func superAdmin() scope.Scope {
	return scope.Scope{UserID: uuid.New(), Role: entity.RoleSuperAdmin}
}

func bookRequest(title string, numbers ...string) dto.BookRequest {
	return dto.BookRequest{
		Title:            title,
		Category:         "Fiksi",
		Writers:          []string{"Pramoedya Ananta Toer"},
		Publishers:       []string{"Hasta Mitra"},
		Subjects:         []string{"Sastra Indonesia"},
		AccessionNumbers: numbers,
	}
}

func TestCreateBuildsFullGraph(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	req := bookRequest("Bumi Manusia", "IND-001", "IND-002", "IND-001")
	req.Editors = []string{"Joesoef Isak"}

	resp, err := fx.service.Create(ctx, superAdmin(), req)
	require.NoError(t, err)

	assert.Equal(t, "Bumi Manusia", resp.Title)
	require.NotNil(t, resp.Category)
	assert.Equal(t, "Fiksi", resp.Category.Name)
	assert.Len(t, resp.Copies, 2)
	assert.Equal(t, 2, resp.StockTotal)
	assert.Equal(t, 2, resp.StockAvailable)
	assert.Len(t, resp.Authors, 2)
	assert.Len(t, resp.Publishers, 1)
	assert.Len(t, resp.Subjects, 1)
}

func TestCreateReusesMasterDataByName(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.service.Create(ctx, superAdmin(), bookRequest("Buku Satu", "A-1"))
	require.NoError(t, err)
	_, err = fx.service.Create(ctx, superAdmin(), bookRequest("Buku Dua", "A-2"))
	require.NoError(t, err)

	var categories, authors int64
	require.NoError(t, fx.db.Model(&entity.Category{}).Count(&categories).Error)
	require.NoError(t, fx.db.Model(&entity.Author{}).Count(&authors).Error)
	assert.Equal(t, int64(1), categories)
	assert.Equal(t, int64(1), authors)
}

func TestCreateDuplicateAccessionRollsBackWholeBook(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.service.Create(ctx, superAdmin(), bookRequest("Pemilik Asli", "X-1"))
	require.NoError(t, err)

	_, err = fx.service.Create(ctx, superAdmin(), bookRequest("Penyusup", "Y-1", "X-1"))
	require.Error(t, err)

	var conflict *apperror.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "no_induk", conflict.Field)
	assert.Equal(t, []string{"X-1"}, conflict.Values)

	// Nothing of the failed create may remain.
	var books int64
	require.NoError(t, fx.db.Model(&entity.Book{}).Where("title = ?", "Penyusup").Count(&books).Error)
	assert.Zero(t, books)

	var copies int64
	require.NoError(t, fx.db.Model(&entity.BookCopy{}).Where("no_induk = ?", "Y-1").Count(&copies).Error)
	assert.Zero(t, copies)
}

func TestUpdateMergesAccessionNumbers(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, err := fx.service.Create(ctx, superAdmin(), bookRequest("Koleksi", "M-1", "M-2"))
	require.NoError(t, err)

	// Re-submitting a subset plus one new number must keep the old copies.
	updated, err := fx.service.Update(ctx, superAdmin(), created.ID, bookRequest("Koleksi", "M-2", "M-3"))
	require.NoError(t, err)

	numbers := make([]string, 0, len(updated.Copies))
	for _, c := range updated.Copies {
		numbers = append(numbers, c.NoInduk)
	}
	assert.ElementsMatch(t, []string{"M-1", "M-2", "M-3"}, numbers)
	assert.Equal(t, 3, updated.StockTotal)
}

func TestUpdateDuplicateAccessionLeavesBothBooksUntouched(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	owner, err := fx.service.Create(ctx, superAdmin(), bookRequest("Pemilik Nomor", "Z-1"))
	require.NoError(t, err)

	other, err := fx.service.Create(ctx, superAdmin(), bookRequest("Koleksi Lain", "Z-2"))
	require.NoError(t, err)

	// Claiming a number owned by another book must fail the whole update.
	_, err = fx.service.Update(ctx, superAdmin(), other.ID, bookRequest("Koleksi Lain", "Z-2", "Z-1"))
	require.Error(t, err)

	var conflict *apperror.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "no_induk", conflict.Field)
	assert.Equal(t, []string{"Z-1"}, conflict.Values)

	var ownerCopies []entity.BookCopy
	require.NoError(t, fx.db.Where("book_id = ?", owner.ID).Find(&ownerCopies).Error)
	require.Len(t, ownerCopies, 1)
	assert.Equal(t, "Z-1", ownerCopies[0].NoInduk)

	var otherCopies []entity.BookCopy
	require.NoError(t, fx.db.Where("book_id = ?", other.ID).Find(&otherCopies).Error)
	require.Len(t, otherCopies, 1)
	assert.Equal(t, "Z-2", otherCopies[0].NoInduk)

	var kept entity.Book
	require.NoError(t, fx.db.First(&kept, "id = ?", other.ID).Error)
	assert.Equal(t, 1, kept.StockTotal)
}

func TestUpdatePreservesLoanedDelta(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, err := fx.service.Create(ctx, superAdmin(), bookRequest("Dipinjam", "L-1", "L-2"))
	require.NoError(t, err)

	// One copy is out on loan: available drops below total.
	require.NoError(t, fx.db.Model(&entity.Book{}).
		Where("id = ?", created.ID).
		Update("stock_available", 1).Error)

	updated, err := fx.service.Update(ctx, superAdmin(), created.ID, bookRequest("Dipinjam", "L-1", "L-2", "L-3"))
	require.NoError(t, err)

	assert.Equal(t, 3, updated.StockTotal)
	assert.Equal(t, 2, updated.StockAvailable)
}

func TestUpdateForbiddenOutsideOwnRoom(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	admin := &entity.User{Username: "kepala-ruang", PasswordHash: "x", Role: entity.RoleRoomAdmin}
	require.NoError(t, fx.db.Create(admin).Error)
	room := &entity.Room{Name: "Referensi", AdminUserID: admin.ID}
	require.NoError(t, fx.db.Create(room).Error)

	req := bookRequest("Bukan Milikmu", "R-1")
	created, err := fx.service.Create(ctx, superAdmin(), req)
	require.NoError(t, err)

	roomAdmin := scope.Scope{UserID: admin.ID, Role: entity.RoleRoomAdmin, RoomID: &room.ID}
	_, err = fx.service.Update(ctx, roomAdmin, created.ID, req)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	err = fx.service.Delete(ctx, roomAdmin, created.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestDeleteKeepsSharedImage(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.images.Save("shared.jpg", strings.NewReader("jpeg-bytes")))

	first := bookRequest("Jilid Satu", "S-1")
	first.Image = "shared.jpg"
	a, err := fx.service.Create(ctx, superAdmin(), first)
	require.NoError(t, err)

	second := bookRequest("Jilid Dua", "S-2")
	second.Image = "shared.jpg"
	b, err := fx.service.Create(ctx, superAdmin(), second)
	require.NoError(t, err)

	require.NoError(t, fx.service.Delete(ctx, superAdmin(), a.ID))
	assert.True(t, fx.images.Exists("shared.jpg"), "image still referenced by the second book")

	require.NoError(t, fx.service.Delete(ctx, superAdmin(), b.ID))
	assert.False(t, fx.images.Exists("shared.jpg"), "last reference gone, file collected")
}

func TestRelocateExplicitIDs(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	a, err := fx.service.Create(ctx, superAdmin(), bookRequest("Pindah Satu", "P-1"))
	require.NoError(t, err)
	b, err := fx.service.Create(ctx, superAdmin(), bookRequest("Pindah Dua", "P-2"))
	require.NoError(t, err)

	affected, err := fx.service.Relocate(ctx, superAdmin(), dto.RelocateRequest{
		NewLocation: "R-7",
		IDs:         []uuid.UUID{a.ID, b.ID},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
}

func TestRelocateFilterMinusExclusions(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	var excluded uuid.UUID
	for i, title := range []string{"Rak A", "Rak B", "Rak C"} {
		req := bookRequest(title, fmt.Sprintf("Q-%d", i))
		req.ShelfLocation = "LAMA"
		resp, err := fx.service.Create(ctx, superAdmin(), req)
		require.NoError(t, err)
		if title == "Rak B" {
			excluded = resp.ID
		}
	}

	affected, err := fx.service.Relocate(ctx, superAdmin(), dto.RelocateRequest{
		NewLocation:       "BARU",
		AllMatchingFilter: true,
		ExcludeIDs:        []uuid.UUID{excluded},
	}, url.Values{"shelf_location": {"LAMA"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	var still int64
	require.NoError(t, fx.db.Model(&entity.Book{}).Where("shelf_location = ?", "LAMA").Count(&still).Error)
	assert.Equal(t, int64(1), still)
}

func TestRelocateRequiresLocation(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.service.Relocate(context.Background(), superAdmin(), dto.RelocateRequest{
		NewLocation: "   ",
		IDs:         []uuid.UUID{uuid.New()},
	}, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestRelocateRoomAdminWithoutRoomForbidden(t *testing.T) {
	fx := newFixture(t)

	sc := scope.Scope{UserID: uuid.New(), Role: entity.RoleRoomAdmin}
	_, err := fx.service.Relocate(context.Background(), sc, dto.RelocateRequest{
		NewLocation: "R-1",
		IDs:         []uuid.UUID{uuid.New()},
	}, nil)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestListScopesRoomAdminToOwnRoom(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	admin := &entity.User{Username: "ruang-anak", PasswordHash: "x", Role: entity.RoleRoomAdmin}
	require.NoError(t, fx.db.Create(admin).Error)
	room := &entity.Room{Name: "Anak", AdminUserID: admin.ID}
	require.NoError(t, fx.db.Create(room).Error)

	mine := bookRequest("Cerita Anak", "C-1")
	mine.RoomID = &room.ID
	_, err := fx.service.Create(ctx, superAdmin(), mine)
	require.NoError(t, err)
	_, err = fx.service.Create(ctx, superAdmin(), bookRequest("Umum", "C-2"))
	require.NoError(t, err)

	sc := scope.Scope{UserID: admin.ID, Role: entity.RoleRoomAdmin, RoomID: &room.ID}
	list, err := fx.service.List(ctx, sc, url.Values{})
	require.NoError(t, err)

	require.Len(t, list.Data, 1)
	assert.Equal(t, "Cerita Anak", list.Data[0].Title)
	assert.Equal(t, int64(1), list.TotalCopies)
}

func TestSweepOrphanImages(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.images.Save("used.jpg", strings.NewReader("a")))
	require.NoError(t, fx.images.Save("orphan.jpg", strings.NewReader("b")))

	req := bookRequest("Bersampul", "W-1")
	req.Image = "used.jpg"
	_, err := fx.service.Create(ctx, superAdmin(), req)
	require.NoError(t, err)

	require.NoError(t, fx.service.SweepOrphanImages(ctx))

	assert.True(t, fx.images.Exists("used.jpg"))
	assert.False(t, fx.images.Exists("orphan.jpg"))
}
