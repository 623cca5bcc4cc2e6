package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/perpusda/sipus/internal/middleware"
	"github.com/perpusda/sipus/internal/modules/importer/dto"
	importer "github.com/perpusda/sipus/internal/modules/importer/service"
	"github.com/perpusda/sipus/pkg/apperror"
	"github.com/perpusda/sipus/pkg/response"
)

type ImportHandler struct {
	reconciler importer.Reconciler
}

func NewImportHandler(reconciler importer.Reconciler) *ImportHandler {
	return &ImportHandler{reconciler: reconciler}
}

// ImportBooks accepts an XLSX upload, maps its rows by header name and hands
// them to the reconciler.
func (h *ImportHandler) ImportBooks(c *gin.Context) {
	sc, ok := middleware.GetScope(c)
	if !ok {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file xlsx wajib diunggah"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	defer file.Close()

	workbook, err := excelize.OpenReader(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file bukan xlsx yang valid"})
		return
	}
	defer workbook.Close()

	rows, err := parseRows(workbook)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.reconciler.Reconcile(c.Request.Context(), sc, rows)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func parseRows(workbook *excelize.File) ([]dto.ImportRow, error) {
	sheet := workbook.GetSheetName(0)
	raw, err := workbook.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(raw) < 2 {
		return []dto.ImportRow{}, nil
	}

	// First row is the header; columns are matched by name so order is free.
	index := map[string]int{}
	for col, header := range raw[0] {
		index[strings.ToLower(strings.TrimSpace(header))] = col
	}

	cell := func(row []string, name string) string {
		col, ok := index[name]
		if !ok || col >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[col])
	}

	rows := make([]dto.ImportRow, 0, len(raw)-1)
	for _, r := range raw[1:] {
		rows = append(rows, dto.ImportRow{
			Title:            cell(r, "title"),
			Edition:          cell(r, "edition"),
			PublishYear:      cell(r, "publish_year"),
			PublishPlace:     cell(r, "publish_place"),
			PhysicalDesc:     cell(r, "physical_description"),
			ISBN:             cell(r, "isbn"),
			CallNumber:       cell(r, "call_number"),
			Language:         cell(r, "language"),
			ShelfLocation:    cell(r, "shelf_location"),
			Category:         cell(r, "category"),
			Writers:          cell(r, "writers"),
			Editors:          cell(r, "editors"),
			PersonsInCharge:  cell(r, "persons_in_charge"),
			Publishers:       cell(r, "publishers"),
			Subjects:         cell(r, "subjects"),
			AccessionNumbers: cell(r, "accession_numbers"),
			Notes:            cell(r, "notes"),
			Abstract:         cell(r, "abstract"),
			Image:            cell(r, "image"),
		})
	}

	return rows, nil
}
