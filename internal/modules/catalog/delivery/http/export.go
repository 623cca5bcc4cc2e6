package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/perpusda/sipus/internal/entity"
	"github.com/perpusda/sipus/internal/middleware"
	"github.com/perpusda/sipus/pkg/apperror"
	"github.com/perpusda/sipus/pkg/response"
)

var exportHeaders = []string{
	"title", "edition", "publish_year", "publish_place", "physical_description",
	"isbn", "call_number", "language", "shelf_location", "category",
	"writers", "editors", "persons_in_charge", "publishers", "subjects",
	"accession_numbers", "notes", "abstract", "image",
}

// ExportBooks renders the full filtered set as an XLSX workbook whose
// columns mirror the import layout, so an export can be re-imported.
func (h *CatalogHandler) ExportBooks(c *gin.Context) {
	sc, ok := middleware.GetScope(c)
	if !ok {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	books, err := h.service.Export(c.Request.Context(), sc, c.Request.URL.Query())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for col, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	for i, book := range books {
		values := exportRow(book)
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	fileName := fmt.Sprintf("katalog-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		// Headers are already out; the broken download is all the client sees.
		_ = c.Error(err)
	}
}

func exportRow(b *entity.Book) []string {
	var writers, editors, pj []string
	for _, link := range b.Authors {
		switch link.Role {
		case entity.RolePenulis:
			writers = append(writers, link.Author.Name)
		case entity.RoleEditor:
			editors = append(editors, link.Author.Name)
		case entity.RolePenanggungJawab:
			pj = append(pj, link.Author.Name)
		}
	}

	var publishers, subjects, numbers []string
	for _, p := range b.Publishers {
		publishers = append(publishers, p.Name)
	}
	for _, s := range b.Subjects {
		subjects = append(subjects, s.Name)
	}
	for _, cp := range b.Copies {
		numbers = append(numbers, cp.NoInduk)
	}

	category := ""
	if b.Category != nil {
		category = b.Category.Name
	}

	return []string{
		b.Title,
		deref(b.Edition),
		deref(b.PublishYear),
		deref(b.PublishPlace),
		deref(b.PhysicalDesc),
		deref(b.ISBN),
		deref(b.CallNumber),
		deref(b.Language),
		deref(b.ShelfLocation),
		category,
		strings.Join(writers, "; "),
		strings.Join(editors, "; "),
		strings.Join(pj, "; "),
		strings.Join(publishers, "; "),
		strings.Join(subjects, "; "),
		strings.Join(numbers, "; "),
		deref(b.Notes),
		deref(b.Abstract),
		deref(b.Image),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
