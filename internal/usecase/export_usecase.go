package usecase

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"go-interview-intake/internal/domain"
	"go-interview-intake/pkg/apperror"

	"github.com/xuri/excelize/v2"
)

const (
	exportSheet        = "Interviews"
	defaultExportLimit = 500
	maxExportLimit     = 5000
)

var exportColumns = []struct {
	header string
	width  float64
	value  func(r domain.InterviewRecord) any
}{
	{"CANDIDATE NAME", 28, func(r domain.InterviewRecord) any { return r.CandidateName }},
	{"PROFESSIONAL SUMMARY", 60, func(r domain.InterviewRecord) any { return r.ProfessionalSummary }},
	{"HARD SKILLS", 36, func(r domain.InterviewRecord) any { return strings.Join(r.HardSkills, ", ") }},
	{"SOFT SKILLS", 36, func(r domain.InterviewRecord) any { return strings.Join(r.SoftSkills, ", ") }},
	{"TAGS", 28, func(r domain.InterviewRecord) any { return strings.Join(r.Tags, ", ") }},
	{"VIDEO URL", 48, func(r domain.InterviewRecord) any { return r.VideoURL }},
	{"CV URL", 48, func(r domain.InterviewRecord) any { return r.CVURL }},
	{"CREATED AT", 22, func(r domain.InterviewRecord) any {
		if r.CreatedAt.IsZero() {
			return ""
		}
		return r.CreatedAt.UTC().Format("2006-01-02 15:04:05")
	}},
}

type exportUsecase struct {
	repo domain.InterviewRepository
	now  func() time.Time
}

func NewExportUsecase(repo domain.InterviewRepository) domain.ExportUsecase {
	return &exportUsecase{repo: repo, now: time.Now}
}

// ExportInterviews writes the latest saved interviews to an XLSX workbook.
func (u *exportUsecase) ExportInterviews(ctx context.Context, limit int) ([]byte, string, error) {
	if limit <= 0 {
		limit = defaultExportLimit
	}
	if limit > maxExportLimit {
		limit = maxExportLimit
	}
	rows, err := u.repo.List(ctx, limit)
	if err != nil {
		return nil, "", err
	}
	data, err := writeWorkbook(rows)
	if err != nil {
		return nil, "", apperror.Internal(err)
	}
	filename := fmt.Sprintf("interviews_%s.xlsx", u.now().Format("20060102_150405"))
	return data, filename, nil
}

func writeWorkbook(rows []domain.InterviewRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}

	for i, col := range exportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(exportSheet, cell, col.header)
		name, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(exportSheet, name, name, col.width)
	}

	// Indigo header matching the CV banner
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#4F46E5"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	endCell, _ := excelize.CoordinatesToCellName(len(exportColumns), 1)
	f.SetCellStyle(exportSheet, "A1", endCell, headerStyle)

	for rowIdx, rec := range rows {
		for colIdx, col := range exportColumns {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(exportSheet, cell, col.value(rec)); err != nil {
				return nil, fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}
