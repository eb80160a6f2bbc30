package excel

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FileType is a supported tabular format
type FileType string

const (
	FileTypeCSV  FileType = "csv"
	FileTypeTSV  FileType = "tsv"
	FileTypeXLSX FileType = "xlsx"
)

// DetectFileType maps a file extension to its format. Ranked-list (.rnk)
// and plain text files are tab separated.
func DetectFileType(path string) (FileType, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return FileTypeCSV, nil
	case ".tsv", ".txt", ".tab", ".rnk":
		return FileTypeTSV, nil
	case ".xlsx", ".xlsm":
		return FileTypeXLSX, nil
	default:
		return "", fmt.Errorf("unsupported file type %q: %s", ext, path)
	}
}

func (t FileType) delimiter() rune {
	if t == FileTypeTSV {
		return '\t'
	}
	return ','
}
