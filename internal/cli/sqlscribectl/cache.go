package sqlscribectl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sqlscribe/sqlscribe/internal/querykey"
	"github.com/sqlscribe/sqlscribe/internal/sqlcache"
)

func newCacheCommand(openStore OpenStoreFunc, stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and move the query cache of the configured backend",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeStore, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			m, err := store.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load cache: %w", err)
			}
			stats := sqlcache.ComputeStats(m)
			_, _ = fmt.Fprintf(stdout, "Entries:   %d\nSQL bytes: %d\n", stats.Entries, stats.SQLBytes)
			return nil
		},
	}

	var exportFormat, exportPath string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the whole cache to a JSON or parquet file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeStore, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			m, err := store.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load cache: %w", err)
			}
			data, err := sqlcache.Encode(strings.ToLower(exportFormat), m)
			if err != nil {
				return err
			}
			if exportPath == "" || exportPath == "-" {
				_, err = stdout.Write(data)
				return err
			}
			if err := os.WriteFile(exportPath, data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			_, _ = fmt.Fprintf(stdout, "Exported %d entries to %s\n", len(m), exportPath)
			return nil
		},
	}
	exportCmd.Flags().StringVar(&exportFormat, "format", sqlcache.FormatJSON, "export format: json or parquet")
	exportCmd.Flags().StringVar(&exportPath, "out", "-", "output file, - for stdout")

	var importFormat, importPath string
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Merge a JSON or parquet export into the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if importPath == "" {
				return fmt.Errorf("--in is required")
			}
			data, err := os.ReadFile(importPath)
			if err != nil {
				return fmt.Errorf("read import: %w", err)
			}
			imported, err := sqlcache.Decode(detectFormat(importFormat, importPath), data)
			if err != nil {
				return fmt.Errorf("decode import: %w", err)
			}

			store, closeStore, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			existing, err := store.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load cache: %w", err)
			}
			normalized := normalizeKeys(imported)
			merged := sqlcache.Merge(existing, normalized)
			if err := store.Save(cmd.Context(), merged); err != nil {
				return fmt.Errorf("save cache: %w", err)
			}
			_, _ = fmt.Fprintf(stdout, "Imported %d entries (%d total)\n", len(normalized), len(merged))
			return nil
		},
	}
	importCmd.Flags().StringVar(&importFormat, "format", "", "import format: json or parquet (default: from file extension)")
	importCmd.Flags().StringVar(&importPath, "in", "", "file to import")

	cmd.AddCommand(statsCmd, exportCmd, importCmd)
	return cmd
}

func detectFormat(flagValue, path string) string {
	if format := strings.ToLower(strings.TrimSpace(flagValue)); format != "" {
		return format
	}
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return sqlcache.FormatParquet
	}
	return sqlcache.FormatJSON
}

// normalizeKeys rewrites keys to the form the request path looks up. When
// several keys collapse to one, the lexically last original key wins.
func normalizeKeys(m sqlcache.Mapping) sqlcache.Mapping {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	out := make(sqlcache.Mapping, len(m))
	for _, key := range keys {
		out[querykey.Normalize(key)] = m[key]
	}
	return out
}
