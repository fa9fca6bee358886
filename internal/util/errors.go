package util

import "errors"

var (
	ErrNoExtractableText = errors.New("no extractable text found in document")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyDataset      = errors.New("dataset has no rows")
	ErrUnknownSheet      = errors.New("sheet not found in workbook")

	ErrEmptyQuery     = errors.New("query is empty")
	ErrNoDataset      = errors.New("no dataset loaded")
	ErrIterationLimit = errors.New("agent stopped due to iteration limit")
	ErrUnknownTool    = errors.New("unknown tool")
)
