package dataset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

const scanBatch = 256

// ScanFiles reads rows of type T from paths in order, keeping rows where
// match returns true and stopping as soon as limit rows have been kept.
// limit <= 0 scans everything. Paths are consumed in the order given, so
// callers that need deterministic truncation pass them sorted.
func ScanFiles[T any](domain Domain, paths []string, match func(T) bool, limit int) ([]T, error) {
	out := []T{}
	for _, path := range paths {
		done, err := scanFile(domain, path, match, limit, &out)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}
	return out, nil
}

func scanFile[T any](domain Domain, path string, match func(T) bool, limit int, out *[]T) (bool, error) {
	pf, f, err := openPartition(domain, path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	r := parquet.NewGenericReader[T](pf)
	defer r.Close()

	rows := make([]T, scanBatch)
	for {
		n, readErr := r.Read(rows)
		for _, row := range rows[:n] {
			if match != nil && !match(row) {
				continue
			}
			*out = append(*out, row)
			if limit > 0 && len(*out) >= limit {
				return true, nil
			}
		}
		if errors.Is(readErr, io.EOF) {
			return false, nil
		}
		if readErr != nil {
			return false, badData(domain, "partition could not be decoded", readErr)
		}
	}
}

// RequireColumn fails when column is absent from any of the files'
// schemas. Aggregations call this before scanning so a missing metric
// column surfaces as one clear error instead of zero-valued rows.
func RequireColumn(domain Domain, paths []string, column string) error {
	for _, path := range paths {
		pf, f, err := openPartition(domain, path)
		if err != nil {
			return err
		}
		_, ok := pf.Schema().Lookup(column)
		f.Close()
		if !ok {
			return badData(domain, fmt.Sprintf("column %q missing from partition schema", column), nil)
		}
	}
	return nil
}

// ValidateBytes checks that data parses as a parquet file carrying the
// domain's required columns. The locator calls this before caching
// remotely fetched bytes.
func ValidateBytes(domain Domain, data []byte) error {
	pf, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return badData(domain, "fetched bytes are not valid parquet", err)
	}
	for _, col := range descriptors[domain].required {
		if _, ok := pf.Schema().Lookup(col); !ok {
			return badData(domain, fmt.Sprintf("fetched parquet is missing column %q", col), nil)
		}
	}
	return nil
}

func openPartition(domain Domain, path string) (*parquet.File, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, badData(domain, "partition could not be opened", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, badData(domain, "partition could not be opened", err)
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		f.Close()
		return nil, nil, badData(domain, "partition is not valid parquet", err)
	}
	return pf, f, nil
}
