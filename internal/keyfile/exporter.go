package keyfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/domain"
)

// FilterByStatus keeps results whose status matches any of the given ones.
// With no statuses everything passes through.
func FilterByStatus(results []*domain.CheckResult, statuses ...domain.KeyStatus) []*domain.CheckResult {
	if len(statuses) == 0 {
		return results
	}
	var out []*domain.CheckResult
	for _, res := range results {
		for _, st := range statuses {
			if res.Status == st {
				out = append(out, res)
				break
			}
		}
	}
	return out
}

// WriteCSV exports results with one row per check.
func WriteCSV(w io.Writer, results []*domain.CheckResult) error {
	writer := csv.NewWriter(w)

	header := []string{"key", "status", "error_message", "region", "account", "check_time"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, res := range results {
		region := res.RegionUsed
		if region == "" {
			region = res.Key.Region
		}
		record := []string{
			res.Key.Formatted(),
			string(res.Status),
			res.ErrorMessage,
			region,
			res.AccountUsed,
			res.CheckTime.Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteTXT exports results line by line as "KEY<TAB>status".
func WriteTXT(w io.Writer, results []*domain.CheckResult) error {
	for _, res := range results {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", res.Key.Formatted(), res.Status); err != nil {
			return fmt.Errorf("failed to write txt record: %w", err)
		}
	}
	return nil
}
