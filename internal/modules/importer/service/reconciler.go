package service

import (
	"context"
	"log"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/perpusda/sipus/internal/entity"
	"github.com/perpusda/sipus/internal/modules/catalog/repository"
	"github.com/perpusda/sipus/internal/modules/importer/dto"
	masterRepo "github.com/perpusda/sipus/internal/modules/masterdata/repository"
	"github.com/perpusda/sipus/internal/scope"
	"github.com/perpusda/sipus/pkg/apperror"
	"github.com/perpusda/sipus/pkg/storage"
)

const defaultCategory = "Uncategorized"

// Reconciler resolves spreadsheet rows to existing or new books. Rows are
// processed sequentially; each row's mutations run in their own transaction
// so one failed row never poisons the rest of the batch.
type Reconciler interface {
	Reconcile(ctx context.Context, sc scope.Scope, rows []dto.ImportRow) (*dto.ImportResult, error)
}

type reconciler struct {
	db      *gorm.DB
	books   repository.Repository
	master  masterRepo.Repository
	images  storage.ImageStore
	fetcher *storage.Fetcher
	titler  cases.Caser
}

func NewReconciler(
	db *gorm.DB,
	books repository.Repository,
	master masterRepo.Repository,
	images storage.ImageStore,
	fetcher *storage.Fetcher,
) Reconciler {
	return &reconciler{
		db:      db,
		books:   books,
		master:  master,
		images:  images,
		fetcher: fetcher,
		titler:  cases.Title(language.Und),
	}
}

func (r *reconciler) Reconcile(ctx context.Context, sc scope.Scope, rows []dto.ImportRow) (*dto.ImportResult, error) {
	result := &dto.ImportResult{Failures: []dto.RowFailure{}}

	for i, row := range rows {
		created, err := r.reconcileRow(ctx, sc, row)
		if err != nil {
			result.Failures = append(result.Failures, dto.RowFailure{
				Row:   i + 1,
				Title: strings.TrimSpace(row.Title),
				Error: err.Error(),
			})
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	return result, nil
}

func (r *reconciler) reconcileRow(ctx context.Context, sc scope.Scope, row dto.ImportRow) (bool, error) {
	title := r.titler.String(collapse(row.Title))
	if title == "" {
		return false, apperror.New(400, "judul kosong", apperror.ErrInvalidInput)
	}

	existing, err := r.books.FindByTitleFold(ctx, title)
	if err != nil && !repository.IsNotFound(err) {
		return false, err
	}

	// Image failures degrade to "no image", never failing the row.
	imageName, downloaded := r.resolveImage(ctx, row.Image)

	created := existing == nil
	if created {
		err = r.createRow(ctx, sc, row, title, imageName)
	} else {
		err = r.updateRow(ctx, existing, row, title, imageName)
	}

	// A failed row rolls its book back, leaving a just-downloaded cover
	// unreferenced; remove it instead of waiting for the sweep.
	if err != nil && downloaded {
		if derr := r.images.Delete(imageName); derr != nil {
			log.Printf("import image cleanup skipped for %s: %v", imageName, derr)
		}
	}
	return created, err
}

func (r *reconciler) createRow(ctx context.Context, sc scope.Scope, row dto.ImportRow, title, imageName string) error {
	numbers := splitList(row.AccessionNumbers)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		books := r.books.WithTx(tx)
		master := r.master.WithTx(tx)

		categoryName := strings.TrimSpace(row.Category)
		if categoryName == "" {
			categoryName = defaultCategory
		}
		category, err := master.FindOrCreateCategory(ctx, categoryName)
		if err != nil {
			return err
		}

		var roomID = sc.RoomID
		book := &entity.Book{
			Title:         title,
			Edition:       optional(row.Edition),
			PublishYear:   optional(row.PublishYear),
			PublishPlace:  optional(row.PublishPlace),
			PhysicalDesc:  optional(row.PhysicalDesc),
			ISBN:          optional(row.ISBN),
			CallNumber:    optional(row.CallNumber),
			Language:      optional(row.Language),
			ShelfLocation: optional(row.ShelfLocation),
			Abstract:      optional(row.Abstract),
			Notes:         optional(row.Notes),
			Image:         optional(imageName),
			CategoryID:    &category.ID,
			RoomID:        roomID,
		}
		if err := books.Create(ctx, book); err != nil {
			return err
		}

		if err := r.linkRow(ctx, books, master, book, row); err != nil {
			return err
		}

		// A duplicate accession number rolls the whole row back, removing
		// the just-created book.
		if err := r.mergeCopies(ctx, books, book, numbers, nil); err != nil {
			return err
		}

		book.StockTotal = len(numbers)
		book.StockAvailable = len(numbers)
		return books.Save(ctx, book)
	})
}

// updateRow is the non-destructive merge: only empty or placeholder fields
// are overwritten, the title is always refreshed to its normalized form,
// and accession numbers are unioned with the existing set.
func (r *reconciler) updateRow(ctx context.Context, book *entity.Book, row dto.ImportRow, title, imageName string) error {
	oldImage := ""
	if book.Image != nil {
		oldImage = *book.Image
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		books := r.books.WithTx(tx)
		master := r.master.WithTx(tx)

		if book.Title != title {
			book.Title = title
		}
		mergeField(&book.Edition, row.Edition)
		mergeField(&book.PublishYear, row.PublishYear)
		mergeField(&book.PublishPlace, row.PublishPlace)
		mergeField(&book.PhysicalDesc, row.PhysicalDesc)
		mergeField(&book.ISBN, row.ISBN)
		mergeField(&book.CallNumber, row.CallNumber)
		mergeField(&book.Language, row.Language)
		mergeField(&book.ShelfLocation, row.ShelfLocation)
		mergeField(&book.Abstract, row.Abstract)
		mergeField(&book.Notes, row.Notes)

		if book.CategoryID == nil {
			categoryName := strings.TrimSpace(row.Category)
			if categoryName == "" {
				categoryName = defaultCategory
			}
			category, err := master.FindOrCreateCategory(ctx, categoryName)
			if err != nil {
				return err
			}
			book.CategoryID = &category.ID
		}

		if imageName != "" && imageName != oldImage {
			book.Image = &imageName
		}

		if err := r.linkRow(ctx, books, master, book, row); err != nil {
			return err
		}

		if err := r.mergeCopies(ctx, books, book, splitList(row.AccessionNumbers), book.Copies); err != nil {
			return err
		}

		count, err := books.CountCopies(ctx, book.ID)
		if err != nil {
			return err
		}
		loaned := book.StockTotal - book.StockAvailable
		book.StockTotal = int(count)
		book.StockAvailable = int(count) - loaned

		return books.Save(ctx, book)
	})
	if err != nil {
		return err
	}

	if imageName != "" && oldImage != "" && imageName != oldImage {
		r.collectImage(ctx, oldImage)
	}
	return nil
}

// linkRow upserts the row's authors (role-tagged), publishers and subjects.
// Linking is idempotent, so re-importing the same row changes nothing.
func (r *reconciler) linkRow(
	ctx context.Context,
	books repository.Repository,
	master masterRepo.Repository,
	book *entity.Book,
	row dto.ImportRow,
) error {
	roleCells := map[string]string{
		entity.RolePenulis:         row.Writers,
		entity.RoleEditor:          row.Editors,
		entity.RolePenanggungJawab: row.PersonsInCharge,
	}
	for role, cell := range roleCells {
		for _, name := range splitList(cell) {
			author, err := master.FindOrCreateAuthor(ctx, name)
			if err != nil {
				return err
			}
			if err := books.LinkAuthor(ctx, book.ID, author.ID, role); err != nil {
				return err
			}
		}
	}

	for _, name := range splitList(row.Publishers) {
		pub, err := master.FindOrCreatePublisher(ctx, name)
		if err != nil {
			return err
		}
		if err := appendPublisher(ctx, books, book, pub); err != nil {
			return err
		}
	}

	for _, name := range splitList(row.Subjects) {
		sub, err := master.FindOrCreateSubject(ctx, name)
		if err != nil {
			return err
		}
		if err := appendSubject(ctx, books, book, sub); err != nil {
			return err
		}
	}

	return nil
}

func appendPublisher(ctx context.Context, books repository.Repository, book *entity.Book, pub *entity.Publisher) error {
	for _, p := range book.Publishers {
		if p.ID == pub.ID {
			return nil
		}
	}
	book.Publishers = append(book.Publishers, *pub)
	return books.ReplacePublishers(ctx, book, book.Publishers)
}

func appendSubject(ctx context.Context, books repository.Repository, book *entity.Book, sub *entity.Subject) error {
	for _, s := range book.Subjects {
		if s.ID == sub.ID {
			return nil
		}
	}
	book.Subjects = append(book.Subjects, *sub)
	return books.ReplaceSubjects(ctx, book, book.Subjects)
}

// mergeCopies inserts accession numbers not already on the book; any number
// owned elsewhere fails the row with the duplicates listed.
func (r *reconciler) mergeCopies(
	ctx context.Context,
	books repository.Repository,
	book *entity.Book,
	numbers []string,
	existing []entity.BookCopy,
) error {
	owned := make(map[string]bool, len(existing))
	for _, c := range existing {
		owned[c.NoInduk] = true
	}

	var fresh []string
	for _, n := range numbers {
		if !owned[n] {
			fresh = append(fresh, n)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	taken, err := books.CopiesByNoInduk(ctx, fresh)
	if err != nil {
		return err
	}
	if len(taken) > 0 {
		var dup []string
		for _, c := range taken {
			dup = append(dup, c.NoInduk)
		}
		return apperror.NewConflict("no_induk", dup)
	}

	copies := make([]entity.BookCopy, 0, len(fresh))
	for _, n := range fresh {
		copies = append(copies, entity.BookCopy{
			BookID:  book.ID,
			NoInduk: n,
			Status:  entity.CopyAvailable,
		})
	}
	return books.CreateCopies(ctx, copies)
}

// resolveImage reports whether the returned file was downloaded for this
// row, as opposed to referencing an already stored one.
func (r *reconciler) resolveImage(ctx context.Context, image string) (string, bool) {
	image = strings.TrimSpace(image)
	if image == "" {
		return "", false
	}
	if storage.IsURL(image) {
		name, err := r.fetcher.Fetch(ctx, image)
		if err != nil {
			log.Printf("import image download skipped: %v", err)
			return "", false
		}
		return name, true
	}
	if r.images.Exists(image) {
		return image, false
	}
	return "", false
}

func (r *reconciler) collectImage(ctx context.Context, fileName string) {
	count, err := r.books.ImageRefCount(ctx, fileName)
	if err != nil || count > 0 {
		return
	}
	if err := r.images.Delete(fileName); err != nil {
		log.Printf("import image cleanup skipped for %s: %v", fileName, err)
	}
}

var listDelimiter = regexp.MustCompile(`[,;\n]`)

// splitList splits a delimited cell into trimmed, de-duplicated values.
func splitList(cell string) []string {
	parts := listDelimiter.Split(cell, -1)
	seen := make(map[string]bool, len(parts))
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// isPlaceholder reports an empty or placeholder stored value that a
// spreadsheet value may overwrite.
func isPlaceholder(v *string) bool {
	return v == nil || *v == "" || *v == "-"
}

func mergeField(dst **string, incoming string) {
	incoming = strings.TrimSpace(incoming)
	if incoming == "" {
		return
	}
	if isPlaceholder(*dst) {
		*dst = &incoming
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
