// Package query holds the one filter normalizer and predicate builder shared
// by the admin book list, the public OPAC search, and bulk shelf relocation.
package query

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

type SearchField string

const (
	FieldAll        SearchField = "all"
	FieldTitle      SearchField = "title"
	FieldISBN       SearchField = "isbn"
	FieldAuthor     SearchField = "author"
	FieldPublisher  SearchField = "publisher"
	FieldSubject    SearchField = "subject"
	FieldCategory   SearchField = "category"
	FieldCallNumber SearchField = "call_number"
)

type MatchType string

const (
	MatchContains   MatchType = "contains"
	MatchStartsWith MatchType = "startsWith"
	MatchEndsWith   MatchType = "endsWith"
	MatchExact      MatchType = "exact"
)

// Filter is the canonical, normalized form of a raw query-parameter bag.
type Filter struct {
	Text  string
	Field SearchField
	Match MatchType

	CategoryID    *uuid.UUID
	SubjectID     *uuid.UUID
	Year          string
	ShelfLocation string

	IncompleteOnly bool

	// TokenSearch splits Text on whitespace and requires the target field to
	// contain every token, so "potter harry" matches "Harry Potter".
	TokenSearch bool

	// RoomID scopes the whole query to one room's books.
	RoomID *uuid.UUID

	Page      int
	PageSize  int
	SortField string
	SortDir   string
}

// Options carries the per-call-site knobs: the admin list caps pages at 100,
// OPAC defaults to 12 with a 100 cap, shelf management uses 200.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
	TokenSearch     bool
}

var sortFields = map[string]bool{
	"title":      true,
	"created_at": true,
	"updated_at": true,
}

// Normalize turns a raw key->values map into a Filter. When a key repeats,
// the last value wins; "" and the literal "0" mean "no filter".
func Normalize(raw url.Values, opts Options) Filter {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 10
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = 100
	}

	f := Filter{
		Field:       FieldAll,
		Match:       MatchContains,
		TokenSearch: opts.TokenSearch,
		Page:        1,
		PageSize:    opts.DefaultPageSize,
		SortField:   "title",
		SortDir:     "ASC",
	}

	f.Text = collapseWhitespace(last(raw, "text"))

	switch SearchField(last(raw, "search_field")) {
	case FieldTitle, FieldISBN, FieldAuthor, FieldPublisher, FieldSubject, FieldCategory, FieldCallNumber:
		f.Field = SearchField(last(raw, "search_field"))
	}

	switch MatchType(last(raw, "match")) {
	case MatchStartsWith, MatchEndsWith, MatchExact:
		f.Match = MatchType(last(raw, "match"))
	}

	f.CategoryID = parseID(last(raw, "category_id"))
	f.SubjectID = parseID(last(raw, "subject_id"))
	f.Year = last(raw, "year")
	f.ShelfLocation = last(raw, "shelf_location")

	switch last(raw, "incomplete") {
	case "1", "true":
		f.IncompleteOnly = true
	}

	if page, err := strconv.Atoi(last(raw, "page")); err == nil && page >= 1 {
		f.Page = page
	}
	if size, err := strconv.Atoi(last(raw, "limit")); err == nil && size >= 1 {
		f.PageSize = size
	}
	if f.PageSize > opts.MaxPageSize {
		f.PageSize = opts.MaxPageSize
	}

	if field := last(raw, "sort"); sortFields[field] {
		f.SortField = field
	}
	if dir := strings.ToUpper(last(raw, "dir")); dir == "ASC" || dir == "DESC" {
		f.SortDir = dir
	}

	return f
}

// OrderClause renders the ORDER BY target. On date columns the user-facing
// "ascending" means newest first, so the literal direction is flipped.
func (f Filter) OrderClause() string {
	field := f.SortField
	if !sortFields[field] {
		field = "title"
	}
	dir := f.SortDir
	if dir != "DESC" {
		dir = "ASC"
	}
	if field == "created_at" || field == "updated_at" {
		if dir == "ASC" {
			dir = "DESC"
		} else {
			dir = "ASC"
		}
	}
	return "books." + field + " " + dir
}

// Offset is the row offset matching Page and PageSize.
func (f Filter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// last returns the final value supplied for key, the most recent form
// submission winning. Empty and the literal "0" reset the filter.
func last(raw url.Values, key string) string {
	values := raw[key]
	if len(values) == 0 {
		return ""
	}
	v := strings.TrimSpace(values[len(values)-1])
	if v == "" || v == "0" {
		return ""
	}
	return v
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func parseID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}
