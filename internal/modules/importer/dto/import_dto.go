package dto

// ImportRow is one spreadsheet row. Multi-value cells (authors, publishers,
// subjects, accession numbers) arrive delimited and are split by the
// reconciler.
type ImportRow struct {
	Title            string `json:"title"`
	Edition          string `json:"edition"`
	PublishYear      string `json:"publish_year"`
	PublishPlace     string `json:"publish_place"`
	PhysicalDesc     string `json:"physical_description"`
	ISBN             string `json:"isbn"`
	CallNumber       string `json:"call_number"`
	Language         string `json:"language"`
	ShelfLocation    string `json:"shelf_location"`
	Category         string `json:"category"`
	Writers          string `json:"writers"`
	Editors          string `json:"editors"`
	PersonsInCharge  string `json:"persons_in_charge"`
	Publishers       string `json:"publishers"`
	Subjects         string `json:"subjects"`
	AccessionNumbers string `json:"accession_numbers"`
	Notes            string `json:"notes"`
	Abstract         string `json:"abstract"`
	Image            string `json:"image"` // URL or existing filename
}

type RowFailure struct {
	Row   int    `json:"row"`
	Title string `json:"title"`
	Error string `json:"error"`
}

type ImportResult struct {
	Created  int          `json:"created"`
	Updated  int          `json:"updated"`
	Failures []RowFailure `json:"failures"`
}
