package dataset

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"testing"

	"dataagent/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const salesCSV = "name,sales\nalice,100\nbob,250.5\ncarol,80\n"

func TestReadCSV(t *testing.T) {
	ds, err := Load("sales.csv", KindCSV, []byte(salesCSV), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "sales"}, ds.Columns)
	require.Equal(t, 3, ds.Len())
	assert.Equal(t, "alice", ds.Cell(0, 0).String())
	assert.True(t, ds.Cell(1, 1).IsNum)
	assert.Equal(t, 250.5, ds.Cell(1, 1).Num)
	assert.False(t, ds.IsDocument())
}

func TestReadCSVPadsShortRowsAndSkipsBlankLines(t *testing.T) {
	ds, err := ReadCSV("x.csv", []byte("\xef\xbb\xbfa,b,a\n1\n\n2,3,4,5\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "a_2"}, ds.Columns)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, "", ds.Cell(0, 2).String())
	assert.Len(t, ds.Rows[1], 3)
}

func TestReadCSVHeaderOnlyIsEmpty(t *testing.T) {
	_, err := ReadCSV("x.csv", []byte("name,sales\n"))
	require.ErrorIs(t, err, util.ErrEmptyDataset)
}

func TestReadExcelSelectsSheet(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"region", "revenue"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"north", 10}))
	_, err := f.NewSheet("Q2")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Q2", "A1", &[]any{"region", "revenue"}))
	require.NoError(t, f.SetSheetRow("Q2", "A2", &[]any{"south", 20}))
	require.NoError(t, f.SetSheetRow("Q2", "A3", &[]any{"east", 30}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	first, err := Load("book.xlsx", KindExcel, buf.Bytes(), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Sheet1", first.Sheet)
	assert.Equal(t, []string{"Sheet1", "Q2"}, first.Sheets)
	assert.Equal(t, 1, first.Len())

	q2, err := Load("book.xlsx", KindExcel, buf.Bytes(), LoadOptions{Sheet: "Q2"})
	require.NoError(t, err)
	assert.Equal(t, 2, q2.Len())
	assert.Equal(t, 30.0, q2.Cell(1, 1).Num)

	_, err = Load("book.xlsx", KindExcel, buf.Bytes(), LoadOptions{Sheet: "missing"})
	require.ErrorIs(t, err, util.ErrUnknownSheet)
}

func TestExtractDOCXText(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>Quarterly </w:t></w:r><w:r><w:t>report</w:t></w:r></w:p>
<w:p></w:p>
<w:p><w:r><w:t>Sales rose.</w:t></w:r></w:p>
</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	ds, err := Load("report.docx", KindDOCX, buf.Bytes(), LoadOptions{})
	require.NoError(t, err)
	assert.True(t, ds.IsDocument())
	assert.Equal(t, []string{TextColumn}, ds.Columns)
	assert.Equal(t, "Quarterly report\nSales rose.", ds.Text())
}

func TestLoadTextSanitizes(t *testing.T) {
	ds, err := Load("notes.txt", KindTXT, []byte("hello\x00 world\x01\n"), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "hello world", ds.Text())

	_, err = Load("blank.txt", KindTXT, []byte(" \n\t"), LoadOptions{})
	require.ErrorIs(t, err, util.ErrNoExtractableText)
}

func TestLoadPDFRejectsGarbage(t *testing.T) {
	_, err := Load("broken.pdf", KindPDF, []byte("not a pdf"), LoadOptions{})
	require.Error(t, err)
}

func TestKindFromFilename(t *testing.T) {
	cases := map[string]Kind{
		"a.CSV":       KindCSV,
		"b.xlsx":      KindExcel,
		"c.pdf":       KindPDF,
		"d.docx":      KindDOCX,
		"e.txt":       KindTXT,
		"archive.tar": "",
	}
	for name, want := range cases {
		got, err := KindFromFilename(name)
		if want == "" {
			require.ErrorIs(t, err, util.ErrUnsupportedFormat, name)
			continue
		}
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestValueJSONKeepsNumbersNumeric(t *testing.T) {
	ds, err := ReadCSV("s.csv", []byte(salesCSV))
	require.NoError(t, err)
	b, err := json.Marshal(ds)
	require.NoError(t, err)

	var back Dataset
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, ds.Rows, back.Rows)
}

func TestSampleAndPreview(t *testing.T) {
	ds, err := ReadCSV("s.csv", []byte(salesCSV))
	require.NoError(t, err)
	assert.Len(t, ds.Sample(2), 2)
	assert.Len(t, ds.Sample(0), 3)
	assert.Len(t, ds.Sample(10), 3)

	p := ds.Preview(2)
	assert.Equal(t, 3, p.RowCount)
	assert.Equal(t, [][]string{{"alice", "100"}, {"bob", "250.5"}}, p.Rows)
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, Number(42), ParseValue(" 42 "))
	assert.Equal(t, Text("NaN"), ParseValue("NaN"))
	assert.Equal(t, Text("0x1F"), ParseValue("0x1F"))
	assert.Equal(t, Text("A001"), ParseValue("A001"))
}
