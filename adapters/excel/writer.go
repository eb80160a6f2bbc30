package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/xuri/excelize/v2"
)

// DataWriter writes a header and rows as CSV, TSV or an Excel workbook
type DataWriter struct {
	filePath string
	fileType FileType
	// Sheet names the Excel sheet; empty uses "Sheet1"
	Sheet string
}

// NewDataWriter creates a writer, detecting the format from the extension
func NewDataWriter(filePath string) (*DataWriter, error) {
	fileType, err := DetectFileType(filePath)
	if err != nil {
		return nil, err
	}
	return &DataWriter{filePath: filePath, fileType: fileType}, nil
}

// Write replaces the file with headers followed by rows
func (w *DataWriter) Write(headers []string, rows [][]string) error {
	if w.fileType == FileTypeXLSX {
		return w.writeExcel(headers, rows)
	}

	file, err := os.Create(w.filePath)
	if err != nil {
		return fmt.Errorf("failed to create %s file: %w", w.fileType, err)
	}
	if err := WriteDelimited(file, w.fileType, headers, rows); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	log.Printf("[DataWriter] Wrote %d rows to %s", len(rows), w.filePath)
	return nil
}

// WriteDelimited writes comma or tab separated text to out
func WriteDelimited(out io.Writer, fileType FileType, headers []string, rows [][]string) error {
	writer := csv.NewWriter(out)
	writer.Comma = fileType.delimiter()
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

func (w *DataWriter) writeExcel(headers []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := w.Sheet
	if sheet == "" {
		sheet = "Sheet1"
	} else if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet writer: %w", err)
	}
	for i, row := range append([][]string{headers}, rows...) {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if err := f.SaveAs(w.filePath); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	log.Printf("[DataWriter] Wrote %d rows to %s", len(rows), w.filePath)
	return nil
}
