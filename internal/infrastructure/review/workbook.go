package review

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"MICDataset/internal/domain"
	"MICDataset/internal/ports"
)

const (
	SampleSheet     = "Sample"
	RejectionsSheet = "Rejections"

	maxCellRunes = 32000
)

// Workbook exports the dataset sample and the rejection log as an XLSX file for reviewers.
type Workbook struct {
	path string
}

var _ ports.ReviewExporter = (*Workbook)(nil)

func NewWorkbook(path string) *Workbook {
	return &Workbook{path: path}
}

// Export writes both sheets and replaces any earlier workbook at the same path.
func (w *Workbook) Export(ctx context.Context, sample []domain.TrainingExample, rejections []domain.Rejection) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SampleSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(RejectionsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	sampleRows := make([][]any, 0, len(sample))
	for _, example := range sample {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := []any{example.ArticleID, "", "", ""}
		for _, turn := range example.Conversations {
			switch turn.Role {
			case domain.RoleSystem:
				row[1] = clip(turn.Content)
			case domain.RoleUser:
				row[2] = clip(turn.Content)
			case domain.RoleAssistant:
				row[3] = clip(turn.Content)
			}
		}
		sampleRows = append(sampleRows, row)
	}
	if err := writeSheet(f, SampleSheet, []string{"Article ID", "System", "User", "Assistant"}, sampleRows); err != nil {
		return err
	}

	rejectionRows := make([][]any, 0, len(rejections))
	for _, rej := range rejections {
		at := ""
		if !rej.At.IsZero() {
			at = rej.At.UTC().Format(time.RFC3339)
		}
		rejectionRows = append(rejectionRows, []any{
			rej.ArticleID, string(rej.Kind), clip(rej.Reason), clip(rej.RawPayload), rej.RunID, at,
		})
	}
	if err := writeSheet(f, RejectionsSheet, []string{"Article ID", "Kind", "Reason", "Raw Payload", "Run ID", "At"}, rejectionRows); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("create review dir: %w", err)
	}
	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("save workbook %s: %w", w.path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]any) error {
	for col, title := range header {
		if err := setCell(f, sheet, col+1, 1, title); err != nil {
			return err
		}
	}
	for i, row := range rows {
		for col, value := range row {
			if err := setCell(f, sheet, col+1, i+2, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
	}
	return nil
}

func clip(s string) string {
	runes := []rune(s)
	if len(runes) <= maxCellRunes {
		return s
	}
	return string(runes[:maxCellRunes])
}
