package metrics

import (
	"reflect"
	"testing"
)

func TestSortedStatusCodes(t *testing.T) {
	tests := []struct {
		name  string
		codes map[int]int64
		want  []StatusCount
	}{
		{
			name:  "nil codes",
			codes: nil,
			want:  nil,
		},
		{
			name:  "empty codes",
			codes: map[int]int64{},
			want:  nil,
		},
		{
			name:  "single code",
			codes: map[int]int64{200: 10},
			want:  []StatusCount{{Code: 200, Count: 10}},
		},
		{
			name:  "sorted by count desc",
			codes: map[int]int64{200: 10, 500: 5, 404: 20},
			want: []StatusCount{
				{Code: 404, Count: 20},
				{Code: 200, Count: 10},
				{Code: 500, Count: 5},
			},
		},
		{
			name:  "ties sorted by code",
			codes: map[int]int64{503: 3, 201: 3, 200: 3},
			want: []StatusCount{
				{Code: 200, Count: 3},
				{Code: 201, Count: 3},
				{Code: 503, Count: 3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SortedStatusCodes(tt.codes); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SortedStatusCodes() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortedErrors(t *testing.T) {
	got := SortedErrors(map[string]int64{
		"timeout":                        7,
		"connection refused":             7,
		"HTTP 500 Internal Server Error": 9,
	})
	want := []ErrorCount{
		{Message: "HTTP 500 Internal Server Error", Count: 9},
		{Message: "connection refused", Count: 7},
		{Message: "timeout", Count: 7},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SortedErrors() = %v, want %v", got, want)
	}
	if SortedErrors(nil) != nil {
		t.Error("expected nil rows for empty histogram")
	}
}
