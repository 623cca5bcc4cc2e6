package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/perpusda/sipus/internal/entity"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&entity.Category{},
		&entity.Author{},
		&entity.Publisher{},
		&entity.Subject{},
		&entity.Book{},
		&entity.BookAuthor{},
		&entity.BookCopy{},
		&entity.Institution{},
		&entity.PuskelLoan{},
	))
	return db
}

func strptr(s string) *string { return &s }

func seedCompleteBook(t *testing.T, db *gorm.DB, title string) *entity.Book {
	t.Helper()

	var cat entity.Category
	require.NoError(t, db.Where(entity.Category{Name: "Umum"}).FirstOrCreate(&cat).Error)

	book := &entity.Book{Title: title, CategoryID: &cat.ID, CallNumber: strptr("000 UMU")}
	require.NoError(t, db.Omit("Authors", "Publishers", "Subjects", "Copies").Create(book).Error)

	var author entity.Author
	require.NoError(t, db.Where(entity.Author{Name: "Penulis " + title}).FirstOrCreate(&author).Error)
	require.NoError(t, db.Create(&entity.BookAuthor{BookID: book.ID, AuthorID: author.ID, Role: entity.RolePenulis}).Error)

	var pub entity.Publisher
	require.NoError(t, db.Where(entity.Publisher{Name: "Penerbit Umum"}).FirstOrCreate(&pub).Error)
	require.NoError(t, db.Model(book).Association("Publishers").Append(&pub))

	var subj entity.Subject
	require.NoError(t, db.Where(entity.Subject{Name: "Subjek Umum"}).FirstOrCreate(&subj).Error)
	require.NoError(t, db.Model(book).Association("Subjects").Append(&subj))

	return book
}

func TestDashboardCounts(t *testing.T) {
	db := testDB(t)
	service := NewStatService(db, nil)
	ctx := context.Background()

	complete := seedCompleteBook(t, db, "Laskar Pelangi")
	require.NoError(t, db.Create(&entity.BookCopy{BookID: complete.ID, NoInduk: "A-1", Status: entity.CopyAvailable}).Error)
	require.NoError(t, db.Create(&entity.BookCopy{BookID: complete.ID, NoInduk: "A-2", Status: entity.CopyLoaned}).Error)

	// No category, call number, or relations: counts as incomplete.
	bare := &entity.Book{Title: "Tanpa Metadata"}
	require.NoError(t, db.Create(bare).Error)
	puskelCopy := &entity.BookCopy{BookID: bare.ID, NoInduk: "P-1", Status: entity.CopyPuskelAvailable}
	require.NoError(t, db.Create(puskelCopy).Error)

	inst := &entity.Institution{Name: "SDN 1 Contoh"}
	require.NoError(t, db.Create(inst).Error)
	require.NoError(t, db.Create(&entity.PuskelLoan{
		CopyID:        puskelCopy.ID,
		InstitutionID: inst.ID,
		Status:        entity.LoanActive,
	}).Error)
	require.NoError(t, db.Create(&entity.PuskelLoan{
		CopyID:        puskelCopy.ID,
		InstitutionID: inst.ID,
		Status:        entity.LoanReturned,
	}).Error)

	d, err := service.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), d.TotalBooks)
	assert.Equal(t, int64(3), d.TotalCopies)
	assert.Equal(t, int64(2), d.CopiesAvailable, "available and available_puskel both count")
	assert.Equal(t, int64(1), d.ActiveLoans)
	assert.Equal(t, int64(1), d.IncompleteBooks)
	assert.Equal(t, int64(1), d.Institutions)
}

func TestDashboardEmptyDatabase(t *testing.T) {
	service := NewStatService(testDB(t), nil)

	d, err := service.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Zero(t, d.TotalBooks)
	assert.Zero(t, d.IncompleteBooks)
}
