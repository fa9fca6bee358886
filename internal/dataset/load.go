package dataset

import (
	"fmt"
	"path/filepath"
	"strings"

	"dataagent/internal/util"
)

type Kind string

const (
	KindExcel Kind = "excel"
	KindCSV   Kind = "csv"
	KindPDF   Kind = "pdf"
	KindDOCX  Kind = "docx"
	KindTXT   Kind = "txt"
)

func (k Kind) IsDocument() bool {
	return k == KindPDF || k == KindDOCX || k == KindTXT
}

// ParseKind accepts the names shown in the upload form as well as extensions.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "excel", "xlsx", "xlsm":
		return KindExcel, nil
	case "csv":
		return KindCSV, nil
	case "pdf":
		return KindPDF, nil
	case "docx", "word":
		return KindDOCX, nil
	case "txt", "text":
		return KindTXT, nil
	default:
		return "", fmt.Errorf("%w: %q", util.ErrUnsupportedFormat, s)
	}
}

func KindFromFilename(name string) (Kind, error) {
	ext := filepath.Ext(name)
	if ext == "" {
		return "", fmt.Errorf("%w: %q has no extension", util.ErrUnsupportedFormat, name)
	}
	return ParseKind(ext)
}

type LoadOptions struct {
	// Sheet selects the workbook sheet; empty means the first one.
	Sheet string
}

// Load builds a dataset from an uploaded file.
func Load(name string, kind Kind, data []byte, opts LoadOptions) (*Dataset, error) {
	var (
		ds  *Dataset
		err error
	)
	switch kind {
	case KindCSV:
		ds, err = ReadCSV(name, data)
	case KindExcel:
		ds, err = ReadExcel(name, data, opts.Sheet)
	case KindPDF:
		ds, err = readDocument(name, kind, data, ExtractPDFText)
	case KindDOCX:
		ds, err = readDocument(name, kind, data, ExtractDOCXText)
	case KindTXT:
		ds, err = readDocument(name, kind, data, func(b []byte) (string, error) { return string(b), nil })
	default:
		return nil, fmt.Errorf("%w: %q", util.ErrUnsupportedFormat, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s %s: %w", kind, filepath.Base(name), err)
	}
	return ds, nil
}

func readDocument(name string, kind Kind, data []byte, extract func([]byte) (string, error)) (*Dataset, error) {
	text, err := extract(data)
	if err != nil {
		return nil, err
	}
	text = util.SanitizeText(text)
	if text == "" {
		return nil, util.ErrNoExtractableText
	}
	return FromText(name, kind, text), nil
}
