// Package export renders an owner's chat history as a downloadable file.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"ragchat/internal/model"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const (
	sheetName  = "Chat History"
	timeLayout = "2006-01-02 15:04:05"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

var headers = []string{"ID", "Message", "Response", "Model", "Created At"}

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV, "":
		return FormatCSV, nil
	case FormatXLSX, "excel":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Write renders turns to w in insertion order.
func Write(w io.Writer, format Format, turns []model.ChatTurn) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, turns)
	case FormatXLSX:
		return writeXLSX(w, turns)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func row(t model.ChatTurn) []string {
	return []string{
		strconv.FormatUint(uint64(t.ID), 10),
		t.UserMessage,
		t.AssistantResponse,
		t.ModelID,
		t.CreatedAt.Format(timeLayout),
	}
}

func writeCSV(w io.Writer, turns []model.ChatTurn) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return fmt.Errorf("write csv header failed: %w", err)
	}
	for _, t := range turns {
		if err := cw.Write(row(t)); err != nil {
			return fmt.Errorf("write csv row failed: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, turns []model.ChatTurn) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet failed: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet failed: %w", err)
	}

	for i, h := range headers {
		if err := setCell(f, i+1, 1, h); err != nil {
			return err
		}
	}
	for r, t := range turns {
		for c, v := range row(t) {
			if err := setCell(f, c+1, r+2, v); err != nil {
				return err
			}
		}
	}
	if err := f.SetColWidth(sheetName, "B", "C", 60); err != nil {
		return fmt.Errorf("set column width failed: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx failed: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, col, row int, v string) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheetName, cell, v); err != nil {
		return fmt.Errorf("set cell %s failed: %w", cell, err)
	}
	return nil
}
