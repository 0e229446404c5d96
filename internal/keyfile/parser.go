package keyfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/domain"
)

// ParseText extracts keys from plain text, one per line. A line may carry a
// region hint after a comma: "XXXXX-...-XXXXX,US".
func ParseText(text string) []domain.Key {
	var keys []domain.Key
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		raw, region, found := strings.Cut(line, ",")
		if !found {
			region = ""
		}
		keys = append(keys, domain.NewKey(raw, region))
	}
	return keys
}

// ParseCSV extracts keys from CSV input. The key column is located by header
// name (key/keys/product_key/license_key); a region column
// (region/country/country_code) is optional.
func ParseCSV(r io.Reader) ([]domain.Key, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	keyCol, regionCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "key", "keys", "product_key", "license_key":
			keyCol = i
		case "region", "country", "country_code":
			regionCol = i
		}
	}
	if keyCol < 0 {
		return nil, fmt.Errorf("key column not found in csv header %v", header)
	}

	var keys []domain.Key
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv record: %w", err)
		}
		if keyCol >= len(record) {
			continue
		}

		raw := strings.TrimSpace(record[keyCol])
		if raw == "" {
			continue
		}
		region := ""
		if regionCol >= 0 && regionCol < len(record) {
			region = strings.TrimSpace(record[regionCol])
		}
		keys = append(keys, domain.NewKey(raw, region))
	}
	return keys, nil
}
