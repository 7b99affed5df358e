package excel

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"pack-quiz/internal/domain"
	"github.com/xuri/excelize/v2"
)

// ImportConfig describes the sheet layout. Every row holds one question:
// the question text, then option cells, then the correct option (1-based
// number or option letter) and an optional explanation.
type ImportConfig struct {
	FilePath          string
	SheetName         string
	QuestionColumn    string
	OptionColumns     []string
	CorrectColumn     string
	ExplanationColumn string
	StartRow          int // 1-based; rows before it are headers
	Title             string
	Description       string
}

// DefaultImportConfig returns the default layout: A question, B-E options,
// F correct option, G explanation, header in row 1.
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		SheetName:         "Sheet1",
		QuestionColumn:    "A",
		OptionColumns:     []string{"B", "C", "D", "E"},
		CorrectColumn:     "F",
		ExplanationColumn: "G",
		StartRow:          2,
	}
}

// ImportResult holds the parsed pack document and per-row problems.
type ImportResult struct {
	Meta      domain.PackMeta   `json:"meta"`
	Questions []domain.Question `json:"questions"`
	Skipped   int               `json:"-"`
	Errors    []string          `json:"-"`
}

// Document encodes the result in the pack file format.
func (r *ImportResult) Document() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// ImportPack reads questions from an xlsx workbook.
func ImportPack(cfg ImportConfig) (*ImportResult, error) {
	f, err := excelize.OpenFile(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(cfg.SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	result := &ImportResult{
		Meta:   domain.PackMeta{Title: cfg.Title, Description: cfg.Description},
		Errors: make([]string, 0),
	}
	for i, row := range rows {
		if i < cfg.StartRow-1 {
			continue
		}
		question, err := parseRow(row, cfg)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}
		result.Questions = append(result.Questions, question)
	}
	if len(result.Questions) == 0 {
		return result, fmt.Errorf("no valid questions found in sheet %s", cfg.SheetName)
	}
	return result, nil
}

func parseRow(row []string, cfg ImportConfig) (domain.Question, error) {
	question := cell(row, cfg.QuestionColumn)
	if question == "" {
		return domain.Question{}, fmt.Errorf("question cannot be empty")
	}

	var options []string
	for _, col := range cfg.OptionColumns {
		if text := cell(row, col); text != "" {
			options = append(options, text)
		}
	}
	if len(options) < 2 {
		return domain.Question{}, fmt.Errorf("need at least 2 options, got %d", len(options))
	}

	correct, err := parseCorrect(cell(row, cfg.CorrectColumn), len(options))
	if err != nil {
		return domain.Question{}, err
	}
	return domain.Question{
		Question:      question,
		Options:       options,
		CorrectOption: correct,
		Explanation:   cell(row, cfg.ExplanationColumn),
	}, nil
}

// parseCorrect accepts "2" or "B" and returns a 0-based index.
func parseCorrect(raw string, optionCount int) (int, error) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return 0, fmt.Errorf("correct option missing")
	}
	idx := -1
	if n, err := strconv.Atoi(raw); err == nil {
		idx = n - 1
	} else if len(raw) == 1 && raw[0] >= 'A' && raw[0] <= 'Z' {
		idx = int(raw[0] - 'A')
	}
	if idx < 0 || idx >= optionCount {
		return 0, fmt.Errorf("correct option %q out of range", raw)
	}
	return idx, nil
}

func cell(row []string, column string) string {
	if column == "" {
		return ""
	}
	idx, err := excelize.ColumnNameToNumber(column)
	if err != nil || idx-1 >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx-1])
}
