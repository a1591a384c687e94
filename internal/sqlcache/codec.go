package sqlcache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/parquet-go/parquet-go"
)

var ErrUnsupportedFormat = errors.New("unsupported cache format")

const (
	FormatJSON    = "json"
	FormatParquet = "parquet"
)

type parquetEntry struct {
	CacheKey string `parquet:"cache_key"`
	SQLText  string `parquet:"sql_text"`
}

// EncodeJSON renders m as one indented JSON object.
func EncodeJSON(m Mapping) ([]byte, error) {
	if m == nil {
		m = Mapping{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal cache mapping: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeJSON parses a JSON object of string values. Empty input is an empty mapping.
func DecodeJSON(data []byte) (Mapping, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Mapping{}, nil
	}
	m := Mapping{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode cache mapping: %w", err)
	}
	return m, nil
}

// EncodeParquet writes one row per entry, ordered by key.
func EncodeParquet(m Mapping) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([]parquetEntry, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, parquetEntry{CacheKey: key, SQLText: m[key]})
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[parquetEntry](buf)
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			return nil, fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

func DecodeParquet(data []byte) (Mapping, error) {
	if len(data) == 0 {
		return Mapping{}, nil
	}
	reader := parquet.NewGenericReader[parquetEntry](bytes.NewReader(data))
	defer func() { _ = reader.Close() }()

	m := make(Mapping, reader.NumRows())
	batch := make([]parquetEntry, 128)
	for {
		n, err := reader.Read(batch)
		for _, row := range batch[:n] {
			m[row.CacheKey] = row.SQLText
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet rows: %w", err)
		}
	}
	return m, nil
}

func Encode(format string, m Mapping) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		return EncodeJSON(m)
	case FormatParquet:
		return EncodeParquet(m)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedFormat, format)
	}
}

func Decode(format string, data []byte) (Mapping, error) {
	switch format {
	case FormatJSON, "":
		return DecodeJSON(data)
	case FormatParquet:
		return DecodeParquet(data)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedFormat, format)
	}
}
