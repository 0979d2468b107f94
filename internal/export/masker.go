// Package export produces the masked report export. Personally identifying
// columns are substituted with fixed-shape masks before persistence; the
// transformation is deterministic so identical runs produce identical
// reports.
package export

import (
	"strings"

	"github.com/opensource-finance/harrier/internal/dataset"
)

type maskFunc func(string) string

// Column-name driven substitution rules. Columns not listed pass through
// untouched.
var maskRules = map[string]maskFunc{
	"name":              maskName,
	"display_name":      maskName,
	"id_number":         maskIDNumber,
	"phone":             maskPhone,
	"address":           maskAddress,
	"detail_address":    maskAddress,
	"workplace_address": maskAddress,
	"account_id":        maskAccount,
	"ip_address":        maskIP,
}

// Mask returns a deep copy of the export with the substitution rules
// applied. The input is never modified.
func Mask(e *dataset.Export) *dataset.Export {
	if e == nil {
		return nil
	}
	out := &dataset.Export{
		Datasets: make(map[string]*dataset.Dataset, len(e.Datasets)),
		Order:    append([]string(nil), e.Order...),
		Metadata: copyMeta(e.Metadata),
	}
	for name, ds := range e.Datasets {
		out.Datasets[name] = maskDataset(ds)
	}
	return out
}

func maskDataset(ds *dataset.Dataset) *dataset.Dataset {
	masked := &dataset.Dataset{
		Columns:   append([]string(nil), ds.Columns...),
		Rows:      make([][]any, len(ds.Rows)),
		Metadata:  copyMeta(ds.Metadata),
		CreatedAt: ds.CreatedAt,
	}

	fns := make([]maskFunc, len(ds.Columns))
	for i, col := range ds.Columns {
		fns[i] = maskRules[col]
	}

	for i, row := range ds.Rows {
		nr := make([]any, len(row))
		for j, v := range row {
			if j < len(fns) && fns[j] != nil {
				if s, ok := v.(string); ok && s != "" {
					nr[j] = fns[j](s)
					continue
				}
			}
			nr[j] = v
		}
		masked.Rows[i] = nr
	}
	return masked
}

// maskName keeps the first character: "홍길동" becomes "홍**".
func maskName(s string) string {
	runes := []rune(s)
	if len(runes) <= 1 {
		return s
	}
	return string(runes[0]) + strings.Repeat("*", len(runes)-1)
}

// maskIDNumber keeps the birth-date prefix of a resident id.
func maskIDNumber(s string) string {
	runes := []rune(s)
	if len(runes) <= 6 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:6]) + strings.Repeat("*", len(runes)-6)
}

// maskPhone keeps the last four digits.
func maskPhone(s string) string {
	runes := []rune(s)
	if len(runes) <= 4 {
		return s
	}
	return strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-4:])
}

// maskAddress keeps the first two whitespace tokens (city and district).
func maskAddress(s string) string {
	fields := strings.Fields(s)
	if len(fields) <= 2 {
		return s
	}
	return strings.Join(fields[:2], " ") + " ***"
}

// maskAccount keeps the last four characters.
func maskAccount(s string) string {
	runes := []rune(s)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-4:])
}

// maskIP blanks the host part of a dotted quad.
func maskIP(s string) string {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return s
	}
	return parts[0] + "." + parts[1] + ".*.*"
}

func copyMeta(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
