package metrics

import "sort"

// StatusCount is one row of the status-code histogram.
type StatusCount struct {
	Code  int
	Count int64
}

// ErrorCount is one row of the error histogram.
type ErrorCount struct {
	Message string
	Count   int64
}

// SortedStatusCodes flattens a status histogram into rows sorted by descending
// count, then by code for stability.
func SortedStatusCodes(codes map[int]int64) []StatusCount {
	if len(codes) == 0 {
		return nil
	}
	rows := make([]StatusCount, 0, len(codes))
	for code, count := range codes {
		rows = append(rows, StatusCount{Code: code, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Code < rows[j].Code
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}

// SortedErrors flattens an error histogram into rows sorted by descending
// count, then by message.
func SortedErrors(errs map[string]int64) []ErrorCount {
	if len(errs) == 0 {
		return nil
	}
	rows := make([]ErrorCount, 0, len(errs))
	for msg, count := range errs {
		rows = append(rows, ErrorCount{Message: msg, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Message < rows[j].Message
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
