package dataset

import (
	"bytes"
	_ "embed"
	"io"

	"penguindash/pkg/domain"
)

//go:embed penguins.csv
var embeddedCSV []byte

func embeddedReader() io.Reader {
	return bytes.NewReader(embeddedCSV)
}

// EmbeddedRecords parses the records compiled into the binary.
func EmbeddedRecords() ([]domain.Record, error) {
	return ParseCSV(embeddedReader())
}
