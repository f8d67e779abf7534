package seed

import (
	"embed"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

//go:embed data/*.csv
var files embed.FS

// brDecimal matches "2500", "2.500" and "2.500,00". A dot is only ever a
// thousands separator, so "500.00" is rejected.
var brDecimal = regexp.MustCompile(`^(\d{1,3}(\.\d{3})+|\d+)(,\d+)?$`)

// readFrame loads an embedded seed file. Every column is read as a string so
// codes like "0001" and decimals like "2.500,00" keep their original text.
func readFrame(name string) (*dataframe.DataFrame, error) {
	f, err := files.Open("data/" + name)
	if err != nil {
		return nil, fmt.Errorf("open seed file %s: %w", name, err)
	}
	defer f.Close()

	df := dataframe.ReadCSV(f,
		dataframe.WithDelimiter(';'),
		dataframe.WithLazyQuotes(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("read seed file %s: %w", name, df.Err)
	}
	return &df, nil
}

// requireColumns fails when the header of df lacks any of cols.
func requireColumns(name string, df *dataframe.DataFrame, cols ...string) error {
	names := df.Names()
	for _, c := range cols {
		if !containsString(names, c) {
			return fmt.Errorf("%w: %s has no column %q", ErrInvalidRow, name, c)
		}
	}
	return nil
}

func containsString(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}

// str returns the trimmed cell, or "" for a missing column or an NA cell.
func str(df *dataframe.DataFrame, col string, row int) string {
	if df == nil || !containsString(df.Names(), col) {
		return ""
	}
	e := df.Col(col).Elem(row)
	if e.IsNA() {
		return ""
	}
	return strings.TrimSpace(e.String())
}

// required is str that rejects an empty cell.
func required(df *dataframe.DataFrame, col string, row int) (string, error) {
	v := str(df, col, row)
	if v == "" {
		return "", fmt.Errorf("%w: row %d: %s is empty", ErrInvalidRow, row+2, col)
	}
	return v, nil
}

// parseBool accepts the spellings used in the seed files.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sim", "s", "true", "1":
		return true, nil
	case "nao", "não", "n", "false", "0", "":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not a boolean", ErrInvalidRow, s)
}

// parseDecimal turns a Brazilian formatted amount ("2.500,00") into the
// canonical text PostgreSQL reads as NUMERIC ("2500.00").
func parseDecimal(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "0", nil
	}
	if !brDecimal.MatchString(s) {
		return "", fmt.Errorf("%w: %q is not a decimal like 2.500,00", ErrInvalidRow, s)
	}
	clean := strings.ReplaceAll(s, ".", "")
	return strings.Replace(clean, ",", ".", 1), nil
}

// parseOptionalInt returns nil for an empty cell.
func parseOptionalInt(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidRow, s)
	}
	return &v, nil
}

// parseList splits a comma separated cell, dropping blanks.
func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
