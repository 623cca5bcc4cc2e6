package query

import (
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDefaults(t *testing.T) {
	f := Normalize(url.Values{}, Options{DefaultPageSize: 10, MaxPageSize: 100})

	assert.Equal(t, FieldAll, f.Field)
	assert.Equal(t, MatchContains, f.Match)
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 10, f.PageSize)
	assert.Equal(t, "title", f.SortField)
	assert.Equal(t, "ASC", f.SortDir)
	assert.Empty(t, f.Text)
	assert.Nil(t, f.CategoryID)
}

func TestNormalizeLastValueWins(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	raw := url.Values{
		"category_id": {a.String(), b.String()},
		"text":        {"first", "second"},
	}

	f := Normalize(raw, Options{})

	require.NotNil(t, f.CategoryID)
	assert.Equal(t, b, *f.CategoryID)
	assert.Equal(t, "second", f.Text)
}

func TestNormalizeZeroResetsFilter(t *testing.T) {
	id := uuid.New()
	raw := url.Values{
		"category_id": {id.String(), "0"},
		"year":        {"2001", ""},
		"subject_id":  {id.String(), "0"},
	}

	f := Normalize(raw, Options{})

	assert.Nil(t, f.CategoryID)
	assert.Nil(t, f.SubjectID)
	assert.Empty(t, f.Year)
}

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	raw := url.Values{"text": {"  harry \t  potter \n"}}

	f := Normalize(raw, Options{})

	assert.Equal(t, "harry potter", f.Text)
}

func TestNormalizeRejectsUnknownEnums(t *testing.T) {
	raw := url.Values{
		"search_field": {"publisher_name; DROP TABLE books"},
		"match":        {"fuzzy"},
		"sort":         {"password_hash"},
		"dir":          {"sideways"},
	}

	f := Normalize(raw, Options{})

	assert.Equal(t, FieldAll, f.Field)
	assert.Equal(t, MatchContains, f.Match)
	assert.Equal(t, "title", f.SortField)
	assert.Equal(t, "ASC", f.SortDir)
}

func TestNormalizeCapsPageSize(t *testing.T) {
	raw := url.Values{"limit": {"5000"}, "page": {"3"}}

	f := Normalize(raw, Options{DefaultPageSize: 10, MaxPageSize: 100})

	assert.Equal(t, 100, f.PageSize)
	assert.Equal(t, 3, f.Page)
	assert.Equal(t, 200, f.Offset())
}

func TestNormalizeInvalidPageFallsBack(t *testing.T) {
	raw := url.Values{"page": {"-2"}, "limit": {"abc"}}

	f := Normalize(raw, Options{DefaultPageSize: 12, MaxPageSize: 100})

	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 12, f.PageSize)
}

func TestNormalizeInvalidUUIDIgnored(t *testing.T) {
	raw := url.Values{"category_id": {"not-a-uuid"}}

	f := Normalize(raw, Options{})

	assert.Nil(t, f.CategoryID)
}

func TestOrderClauseTitle(t *testing.T) {
	f := Filter{SortField: "title", SortDir: "DESC"}
	assert.Equal(t, "books.title DESC", f.OrderClause())
}

func TestOrderClauseTimestampInverted(t *testing.T) {
	// Historical UI contract: ascending on date columns shows newest first.
	f := Filter{SortField: "created_at", SortDir: "ASC"}
	assert.Equal(t, "books.created_at DESC", f.OrderClause())

	f = Filter{SortField: "updated_at", SortDir: "DESC"}
	assert.Equal(t, "books.updated_at ASC", f.OrderClause())
}

func TestOrderClauseUnknownFieldFallsBack(t *testing.T) {
	f := Filter{SortField: "nonsense", SortDir: "DESC"}
	assert.Equal(t, "books.title DESC", f.OrderClause())
}

func TestNormalizeIncompleteFlag(t *testing.T) {
	for _, v := range []string{"1", "true"} {
		f := Normalize(url.Values{"incomplete": {v}}, Options{})
		assert.True(t, f.IncompleteOnly, v)
	}
	f := Normalize(url.Values{"incomplete": {"false"}}, Options{})
	assert.False(t, f.IncompleteOnly)
}

func TestNormalizeTokenSearchComesFromOptions(t *testing.T) {
	f := Normalize(url.Values{}, Options{TokenSearch: true})
	assert.True(t, f.TokenSearch)
}
