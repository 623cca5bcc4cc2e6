package search

import (
	"encoding/json"
	"html"
	"log"
	"strings"

	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"

	"github.com/perpusda/sipus/internal/entity"
)

const booksIndex = "books"

// Indexer mirrors the catalog into the suggest index. The SQL predicate
// builder stays authoritative for the faceted list; this only feeds the
// OPAC typeahead.
type Indexer interface {
	IndexBook(book *entity.Book) error
	DeleteBook(id string) error
	Suggest(q string, limit int) ([]Suggestion, error)
}

type Suggestion struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	CallNumber string `json:"call_number,omitempty"`
}

type meiliIndexer struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewMeiliIndexer(client meilisearch.ServiceManager) Indexer {
	s := &meiliIndexer{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndexes()
	return s
}

func (s *meiliIndexer) initIndexes() {
	searchable := []string{"title", "authors", "publishers", "subjects", "abstract"}
	if _, err := s.client.Index(booksIndex).UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("Failed to update books searchable attributes: %v", err)
	}

	filterableAttrs := []string{"category", "publish_year"}
	filterableInterface := make([]any, len(filterableAttrs))
	for i, v := range filterableAttrs {
		filterableInterface[i] = v
	}
	if _, err := s.client.Index(booksIndex).UpdateFilterableAttributes(&filterableInterface); err != nil {
		log.Printf("Failed to update books filterable attributes: %v", err)
	}

	log.Println("Meilisearch indexes initialized")
}

type meiliBookDoc struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	CallNumber  string   `json:"call_number"`
	Category    string   `json:"category"`
	PublishYear string   `json:"publish_year"`
	Authors     []string `json:"authors"`
	Publishers  []string `json:"publishers"`
	Subjects    []string `json:"subjects"`
	Abstract    string   `json:"abstract"`
}

func (s *meiliIndexer) cleanForIndex(content string) string {
	sanitized := s.sanitizer.Sanitize(content)
	cleanText := html.UnescapeString(sanitized)
	return strings.Join(strings.Fields(cleanText), " ")
}

func (s *meiliIndexer) IndexBook(book *entity.Book) error {
	doc := meiliBookDoc{
		ID:         book.ID.String(),
		Title:      book.Title,
		Authors:    []string{},
		Publishers: []string{},
		Subjects:   []string{},
	}
	if book.CallNumber != nil {
		doc.CallNumber = *book.CallNumber
	}
	if book.Category != nil {
		doc.Category = book.Category.Name
	}
	if book.PublishYear != nil {
		doc.PublishYear = *book.PublishYear
	}
	if book.Abstract != nil {
		doc.Abstract = s.cleanForIndex(*book.Abstract)
	}
	for _, link := range book.Authors {
		doc.Authors = append(doc.Authors, link.Author.Name)
	}
	for _, p := range book.Publishers {
		doc.Publishers = append(doc.Publishers, p.Name)
	}
	for _, sub := range book.Subjects {
		doc.Subjects = append(doc.Subjects, sub.Name)
	}

	_, err := s.client.Index(booksIndex).AddDocuments([]meiliBookDoc{doc}, nil)
	return err
}

func (s *meiliIndexer) DeleteBook(id string) error {
	_, err := s.client.Index(booksIndex).DeleteDocument(id)
	return err
}

func (s *meiliIndexer) Suggest(q string, limit int) ([]Suggestion, error) {
	resp, err := s.client.Index(booksIndex).Search(q, &meilisearch.SearchRequest{
		Limit:                int64(limit),
		AttributesToRetrieve: []string{"id", "title", "call_number"},
	})
	if err != nil {
		return nil, err
	}

	suggestions := make([]Suggestion, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		raw, err := json.Marshal(hit)
		if err != nil {
			continue
		}
		var sug Suggestion
		if err := json.Unmarshal(raw, &sug); err != nil {
			continue
		}
		suggestions = append(suggestions, sug)
	}
	return suggestions, nil
}
