package service

import (
	"context"
	"log"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/perpusda/sipus/internal/entity"
	"github.com/perpusda/sipus/internal/modules/catalog/dto"
	"github.com/perpusda/sipus/internal/modules/catalog/query"
	"github.com/perpusda/sipus/internal/modules/catalog/repository"
	masterRepo "github.com/perpusda/sipus/internal/modules/masterdata/repository"
	"github.com/perpusda/sipus/internal/scope"
	"github.com/perpusda/sipus/internal/search"
	"github.com/perpusda/sipus/pkg/apperror"
	"github.com/perpusda/sipus/pkg/storage"
)

// Page caps per call site.
const (
	AdminPageSize = 10
	AdminPageCap  = 100
	ShelfPageCap  = 200
)

type CatalogService interface {
	List(ctx context.Context, sc scope.Scope, raw url.Values) (*dto.BookListResponse, error)
	Get(ctx context.Context, sc scope.Scope, id uuid.UUID) (*dto.BookResponse, error)
	Create(ctx context.Context, sc scope.Scope, req dto.BookRequest) (*dto.BookResponse, error)
	Update(ctx context.Context, sc scope.Scope, id uuid.UUID, req dto.BookRequest) (*dto.BookResponse, error)
	Delete(ctx context.Context, sc scope.Scope, id uuid.UUID) error
	Relocate(ctx context.Context, sc scope.Scope, req dto.RelocateRequest, rawFilter url.Values) (int64, error)
	Export(ctx context.Context, sc scope.Scope, raw url.Values) ([]*entity.Book, error)
	SweepOrphanImages(ctx context.Context) error
}

type catalogService struct {
	db      *gorm.DB
	books   repository.Repository
	master  masterRepo.Repository
	images  storage.ImageStore
	fetcher *storage.Fetcher
	indexer search.Indexer
}

func NewCatalogService(
	db *gorm.DB,
	books repository.Repository,
	master masterRepo.Repository,
	images storage.ImageStore,
	fetcher *storage.Fetcher,
	indexer search.Indexer,
) CatalogService {
	return &catalogService{
		db:      db,
		books:   books,
		master:  master,
		images:  images,
		fetcher: fetcher,
		indexer: indexer,
	}
}

func (s *catalogService) List(ctx context.Context, sc scope.Scope, raw url.Values) (*dto.BookListResponse, error) {
	f := query.Normalize(raw, query.Options{
		DefaultPageSize: AdminPageSize,
		MaxPageSize:     AdminPageCap,
	})
	if !sc.IsSuperAdmin() {
		f.RoomID = sc.RoomID
	}

	books, total, err := s.books.Search(ctx, f)
	if err != nil {
		return nil, err
	}

	ids, err := s.books.FilteredIDs(ctx, f)
	if err != nil {
		return nil, err
	}
	totalCopies, err := s.books.CopyCountByBookIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	return s.listResponse(books, f, total, totalCopies), nil
}

func (s *catalogService) listResponse(books []*entity.Book, f query.Filter, total, totalCopies int64) *dto.BookListResponse {
	data := make([]dto.BookResponse, 0, len(books))
	for _, b := range books {
		data = append(data, dto.FromEntity(b))
	}
	return &dto.BookListResponse{
		Data:        data,
		Meta:        newMeta(f, total),
		TotalCopies: totalCopies,
	}
}

func (s *catalogService) Get(ctx context.Context, sc scope.Scope, id uuid.UUID) (*dto.BookResponse, error) {
	book, err := s.books.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	if !sc.CanAccessRoom(book.RoomID) {
		return nil, apperror.ErrForbidden
	}
	resp := dto.FromEntity(book)
	return &resp, nil
}

func (s *catalogService) Create(ctx context.Context, sc scope.Scope, req dto.BookRequest) (*dto.BookResponse, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, apperror.New(400, "judul wajib diisi", apperror.ErrInvalidInput)
	}

	numbers := dedupe(req.AccessionNumbers)
	if len(numbers) == 0 {
		return nil, apperror.New(400, "minimal satu nomor induk", apperror.ErrInvalidInput)
	}

	roomID := req.RoomID
	if !sc.IsSuperAdmin() {
		roomID = sc.RoomID
	}

	imageName := s.resolveImage(ctx, req.Image)

	var created *entity.Book
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		books := s.books.WithTx(tx)
		master := s.master.WithTx(tx)

		category, err := master.FindOrCreateCategory(ctx, req.Category)
		if err != nil {
			return err
		}

		book := &entity.Book{
			Title:         req.Title,
			Edition:       optional(req.Edition),
			PublishYear:   optional(req.PublishYear),
			PublishPlace:  optional(req.PublishPlace),
			PhysicalDesc:  optional(req.PhysicalDesc),
			ISBN:          optional(req.ISBN),
			CallNumber:    optional(req.CallNumber),
			Language:      optional(req.Language),
			ShelfLocation: optional(req.ShelfLocation),
			Abstract:      optional(req.Abstract),
			Notes:         optional(req.Notes),
			Image:         optional(imageName),
			CategoryID:    &category.ID,
			RoomID:        roomID,
		}
		if err := books.Create(ctx, book); err != nil {
			return err
		}

		if err := s.linkRelations(ctx, books, master, book, req); err != nil {
			return err
		}

		if err := s.addCopies(ctx, books, book, numbers, nil); err != nil {
			return err
		}

		book.StockTotal = len(numbers)
		book.StockAvailable = len(numbers)
		if err := books.Save(ctx, book); err != nil {
			return err
		}

		created = book
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.reload(ctx, created.ID)
}

func (s *catalogService) Update(ctx context.Context, sc scope.Scope, id uuid.UUID, req dto.BookRequest) (*dto.BookResponse, error) {
	book, err := s.books.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	if !sc.CanAccessRoom(book.RoomID) {
		return nil, apperror.ErrForbidden
	}

	oldImage := stringValue(book.Image)
	newImage := s.resolveImage(ctx, req.Image)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		books := s.books.WithTx(tx)
		master := s.master.WithTx(tx)

		category, err := master.FindOrCreateCategory(ctx, req.Category)
		if err != nil {
			return err
		}

		book.Title = strings.TrimSpace(req.Title)
		book.Edition = optional(req.Edition)
		book.PublishYear = optional(req.PublishYear)
		book.PublishPlace = optional(req.PublishPlace)
		book.PhysicalDesc = optional(req.PhysicalDesc)
		book.ISBN = optional(req.ISBN)
		book.CallNumber = optional(req.CallNumber)
		book.Language = optional(req.Language)
		book.ShelfLocation = optional(req.ShelfLocation)
		book.Abstract = optional(req.Abstract)
		book.Notes = optional(req.Notes)
		book.CategoryID = &category.ID
		if sc.IsSuperAdmin() && req.RoomID != nil {
			book.RoomID = req.RoomID
		}
		if newImage != "" && newImage != oldImage {
			book.Image = &newImage
		}

		if err := books.UnlinkAuthors(ctx, book.ID); err != nil {
			return err
		}
		if err := s.linkRelations(ctx, books, master, book, req); err != nil {
			return err
		}

		// Accession numbers merge: old union new, never removed here.
		if err := s.addCopies(ctx, books, book, dedupe(req.AccessionNumbers), book.Copies); err != nil {
			return err
		}

		count, err := books.CountCopies(ctx, book.ID)
		if err != nil {
			return err
		}
		loanedDelta := book.StockTotal - book.StockAvailable
		book.StockTotal = int(count)
		book.StockAvailable = int(count) - loanedDelta

		return books.Save(ctx, book)
	})
	if err != nil {
		return nil, err
	}

	if newImage != "" && oldImage != "" && newImage != oldImage {
		s.collectImage(ctx, oldImage)
	}

	return s.reload(ctx, book.ID)
}

func (s *catalogService) Delete(ctx context.Context, sc scope.Scope, id uuid.UUID) error {
	book, err := s.books.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return apperror.ErrNotFound
		}
		return err
	}
	if !sc.CanAccessRoom(book.RoomID) {
		return apperror.ErrForbidden
	}

	image := stringValue(book.Image)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.books.WithTx(tx).Delete(ctx, book.ID)
	})
	if err != nil {
		return err
	}

	if image != "" {
		s.collectImage(ctx, image)
	}
	if s.indexer != nil {
		if err := s.indexer.DeleteBook(book.ID.String()); err != nil {
			log.Printf("failed to remove book %s from search index: %v", book.ID, err)
		}
	}
	return nil
}

// linkRelations applies role-tagged author links and the publisher/subject
// associations, resolving each name with findOrCreate.
func (s *catalogService) linkRelations(
	ctx context.Context,
	books repository.Repository,
	master masterRepo.Repository,
	book *entity.Book,
	req dto.BookRequest,
) error {
	roleNames := map[string][]string{
		entity.RolePenulis:         req.Writers,
		entity.RoleEditor:          req.Editors,
		entity.RolePenanggungJawab: req.PersonsInCharge,
	}
	for role, names := range roleNames {
		for _, name := range dedupe(names) {
			author, err := master.FindOrCreateAuthor(ctx, name)
			if err != nil {
				return err
			}
			if err := books.LinkAuthor(ctx, book.ID, author.ID, role); err != nil {
				return err
			}
		}
	}

	var publishers []entity.Publisher
	for _, name := range dedupe(req.Publishers) {
		pub, err := master.FindOrCreatePublisher(ctx, name)
		if err != nil {
			return err
		}
		publishers = append(publishers, *pub)
	}
	if err := books.ReplacePublishers(ctx, book, publishers); err != nil {
		return err
	}

	var subjects []entity.Subject
	for _, name := range dedupe(req.Subjects) {
		sub, err := master.FindOrCreateSubject(ctx, name)
		if err != nil {
			return err
		}
		subjects = append(subjects, *sub)
	}
	return books.ReplaceSubjects(ctx, book, subjects)
}

// addCopies inserts copies for accession numbers not already owned by the
// book. Numbers owned by any other book are a conflict, reported with the
// offending values; the surrounding transaction rolls everything back.
func (s *catalogService) addCopies(
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

// resolveImage turns the request's image cell into a stored filename: URLs
// are downloaded, bare filenames accepted only when already in the store.
// Any failure degrades to "no image".
func (s *catalogService) resolveImage(ctx context.Context, image string) string {
	image = strings.TrimSpace(image)
	if image == "" {
		return ""
	}
	if storage.IsURL(image) {
		name, err := s.fetcher.Fetch(ctx, image)
		if err != nil {
			log.Printf("image download skipped: %v", err)
			return ""
		}
		return name
	}
	if s.images.Exists(image) {
		return image
	}
	return ""
}

// collectImage deletes the file once no book references it.
func (s *catalogService) collectImage(ctx context.Context, fileName string) {
	count, err := s.books.ImageRefCount(ctx, fileName)
	if err != nil {
		log.Printf("image ref count failed for %s: %v", fileName, err)
		return
	}
	if count > 0 {
		return
	}
	if err := s.images.Delete(fileName); err != nil {
		log.Printf("image cleanup skipped for %s: %v", fileName, err)
	}
}

func (s *catalogService) reload(ctx context.Context, id uuid.UUID) (*dto.BookResponse, error) {
	book, err := s.books.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.indexer != nil {
		if err := s.indexer.IndexBook(book); err != nil {
			log.Printf("failed to index book %s: %v", book.ID, err)
		}
	}
	resp := dto.FromEntity(book)
	return &resp, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
