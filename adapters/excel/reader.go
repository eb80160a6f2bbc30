package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// DataReader reads CSV, TSV and Excel files into headers and rows
type DataReader struct {
	filePath string
	fileType FileType
	// Sheet selects the Excel sheet; empty reads the first one
	Sheet string
}

// NewDataReader creates a reader, detecting the format from the extension
func NewDataReader(filePath string) (*DataReader, error) {
	fileType, err := DetectFileType(filePath)
	if err != nil {
		return nil, err
	}
	return &DataReader{filePath: filePath, fileType: fileType}, nil
}

// ReadData reads the whole file
func (r *DataReader) ReadData() (*ExcelData, error) {
	log.Printf("[DataReader] Starting to read %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(string(r.fileType)), r.filePath)
	}

	switch r.fileType {
	case FileTypeCSV, FileTypeTSV:
		file, err := os.Open(r.filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s file: %w", r.fileType, err)
		}
		defer file.Close()
		return ReadDelimited(file, r.fileType)
	case FileTypeXLSX:
		return r.readExcelData()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
}

// readExcelData reads one sheet of an Excel workbook
func (r *DataReader) readExcelData() (*ExcelData, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := r.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	log.Printf("[DataReader] Sheet %s read in %.2fms (%d rows)",
		sheet, float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	return processRows(rows, FileTypeXLSX)
}

// ReadDelimited reads comma or tab separated text from any reader
func ReadDelimited(in io.Reader, fileType FileType) (*ExcelData, error) {
	reader := csv.NewReader(in)
	reader.Comma = fileType.delimiter()
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = fileType == FileTypeTSV
	reader.Comment = '#'

	readStart := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s data: %w", fileType, err)
	}
	log.Printf("[DataReader] %s data read in %.2fms (%d rows)",
		strings.ToUpper(string(fileType)), float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	return processRows(rows, fileType)
}

// processRows converts raw string rows into ExcelData format
func processRows(rows [][]string, fileType FileType) (*ExcelData, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s data must have a header row and at least one data row", fileType)
	}

	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	seen := make(map[string]bool, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
		if headers[i] != "" && seen[headers[i]] {
			return nil, fmt.Errorf("duplicate column %q", headers[i])
		}
		seen[headers[i]] = true
	}

	dataRows := make([]RawRowData, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		rowData := make(RawRowData, len(headers))
		for j, cell := range row {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
			}
		}
		dataRows = append(dataRows, rowData)
	}

	log.Printf("[DataReader] %s data processed (%d columns, %d rows)",
		strings.ToUpper(string(fileType)), len(headers), len(dataRows))

	return &ExcelData{Headers: headers, Rows: dataRows}, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
