// Package sheet reads grade sheet files from disk as CSV text. Workbooks
// are flattened to CSV from their first sheet; text files may be UTF-8 or
// UTF-16 with a byte order mark.
package sheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// UnsupportedTypeError is returned for files that are neither text nor a
// workbook.
type UnsupportedTypeError struct {
	Path string
	MIME string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("%s: unsupported grade sheet type %s", e.Path, e.MIME)
}

// Load reads the grade sheet at path.
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, "read grade sheet")
	}
	text, err := Decode(data)
	var ute *UnsupportedTypeError
	if errors.As(err, &ute) {
		ute.Path = path
	}
	return text, err
}

// Decode converts raw file contents to CSV text.
func Decode(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	mt := mimetype.Detect(data)
	switch {
	case mt.Is(xlsxMIME), mt.Is("application/zip"):
		return workbookCSV(data, mt.String())
	case isText(mt):
		return decodeText(data)
	default:
		return "", &UnsupportedTypeError{MIME: mt.String()}
	}
}

func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

// decodeText honours a UTF-8 or UTF-16 byte order mark and otherwise
// assumes UTF-8.
func decodeText(data []byte) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), dec))
	if err != nil {
		return "", errors.Wrap(err, "decode grade sheet text")
	}
	return string(out), nil
}

func workbookCSV(data []byte, mime string) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", &UnsupportedTypeError{MIME: mime}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return "", errors.Wrapf(err, "read sheet %q", sheets[0])
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return "", errors.Wrap(err, "write workbook rows")
	}
	return buf.String(), nil
}
