package query

import (
	"strings"

	"gorm.io/gorm"

	"github.com/perpusda/sipus/internal/entity"
)

// Apply attaches the filter's predicate to a query rooted at the books
// model. To-many relations are inner-joined only when they are the active
// filter target; joining them overcounts, so callers must count and page
// over distinct book ids.
func Apply(tx *gorm.DB, f Filter) *gorm.DB {
	if f.RoomID != nil {
		tx = tx.Where("books.room_id = ?", *f.RoomID)
	}
	if f.CategoryID != nil {
		tx = tx.Where("books.category_id = ?", *f.CategoryID)
	}
	if f.Year != "" {
		tx = tx.Where("books.publish_year = ?", f.Year)
	}
	if f.ShelfLocation != "" {
		tx = tx.Where("books.shelf_location = ?", f.ShelfLocation)
	}
	if f.SubjectID != nil {
		tx = tx.
			Joins("JOIN book_subjects subject_filter ON subject_filter.book_id = books.id").
			Where("subject_filter.subject_id = ?", *f.SubjectID)
	}

	if f.IncompleteOnly {
		tx = applyIncomplete(tx)
	}

	if f.Text != "" {
		tx = applyText(tx, f)
	}

	return tx
}

// applyIncomplete keeps books failing any cataloging-completeness check:
// missing category, missing/empty call number, no subject, no writer-role
// author, no publisher, or zero copies. The disjunction is deliberate; the
// checks are independent.
func applyIncomplete(tx *gorm.DB) *gorm.DB {
	return tx.Where(
		"books.category_id IS NULL" +
			" OR books.call_number IS NULL OR books.call_number = ''" +
			" OR NOT EXISTS (SELECT 1 FROM book_subjects bs WHERE bs.book_id = books.id)" +
			" OR NOT EXISTS (SELECT 1 FROM book_authors ba WHERE ba.book_id = books.id AND ba.role = '" + entity.RolePenulis + "')" +
			" OR NOT EXISTS (SELECT 1 FROM book_publishers bp WHERE bp.book_id = books.id)" +
			" OR NOT EXISTS (SELECT 1 FROM book_copies bc WHERE bc.book_id = books.id)",
	)
}

func applyText(tx *gorm.DB, f Filter) *gorm.DB {
	switch f.Field {
	case FieldAuthor:
		tx = tx.
			Joins("JOIN book_authors author_filter ON author_filter.book_id = books.id").
			Joins("JOIN authors filter_authors ON filter_authors.id = author_filter.author_id")
		return matchColumns(tx, f, "filter_authors.name")
	case FieldPublisher:
		tx = tx.
			Joins("JOIN book_publishers publisher_filter ON publisher_filter.book_id = books.id").
			Joins("JOIN publishers filter_publishers ON filter_publishers.id = publisher_filter.publisher_id")
		return matchColumns(tx, f, "filter_publishers.name")
	case FieldSubject:
		tx = tx.
			Joins("JOIN book_subjects subject_text_filter ON subject_text_filter.book_id = books.id").
			Joins("JOIN subjects filter_subjects ON filter_subjects.id = subject_text_filter.subject_id")
		return matchColumns(tx, f, "filter_subjects.name")
	case FieldCategory:
		tx = tx.Joins("JOIN categories filter_categories ON filter_categories.id = books.category_id")
		return matchColumns(tx, f, "filter_categories.name")
	case FieldTitle:
		return matchColumns(tx, f, "books.title")
	case FieldISBN:
		return matchColumns(tx, f, "books.isbn")
	case FieldCallNumber:
		return matchColumns(tx, f, "books.call_number")
	default: // FieldAll matches title and call number only
		return matchColumns(tx, f, "books.title", "books.call_number")
	}
}

// matchColumns applies the text match over one or more columns. Multiple
// columns are OR-ed per term; in token mode every token must match (AND
// across tokens, OR across columns for each token).
func matchColumns(tx *gorm.DB, f Filter, columns ...string) *gorm.DB {
	terms := []string{f.Text}
	if f.TokenSearch {
		terms = strings.Fields(f.Text)
	}

	for _, term := range terms {
		match := f.Match
		if f.TokenSearch {
			match = MatchContains
		}

		var parts []string
		var args []interface{}
		for _, col := range columns {
			if match == MatchExact {
				parts = append(parts, col+" = ?")
				args = append(args, term)
				continue
			}
			parts = append(parts, "LOWER("+col+") LIKE ? ESCAPE '\\'")
			args = append(args, pattern(term, match))
		}
		tx = tx.Where(strings.Join(parts, " OR "), args...)
	}

	return tx
}

// likeEscaper neutralizes LIKE metacharacters so user text matches
// literally; "100%" must not behave as a wildcard.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func pattern(term string, match MatchType) string {
	term = likeEscaper.Replace(strings.ToLower(term))
	switch match {
	case MatchStartsWith:
		return term + "%"
	case MatchEndsWith:
		return "%" + term
	default:
		return "%" + term + "%"
	}
}
