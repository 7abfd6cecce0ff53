package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"accident-analytics/models"
	"accident-analytics/utils"
)

// Normalizer maps raw headers and locality values onto the canonical schema.
type Normalizer struct {
	logger  *utils.Logger
	aliases map[string]string
}

// NewNormalizer creates a Normalizer with the built-in alias table.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	aliases := make(map[string]string)
	for canonical, names := range models.ColumnAliases {
		aliases[canonical] = canonical
		for _, n := range names {
			aliases[n] = canonical
		}
	}
	return &Normalizer{logger: logger, aliases: aliases}
}

// Normalize returns a new table with canonical headers, trimmed cells and
// canonical locality codes, plus the resolved column roles. Rows are never
// added, removed or reordered. The input table is not modified.
func (n *Normalizer) Normalize(raw *models.Table) (*models.Table, *models.Schema, error) {
	out := raw.Clone()

	seen := make(map[string]int, len(out.Columns))
	for i, col := range out.Columns {
		name := NormalizeColumnName(col)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if canonical, ok := n.aliases[name]; ok {
			name = canonical
		}
		seen[name]++
		if seen[name] > 1 {
			deduped := fmt.Sprintf("%s_%d", name, seen[name])
			n.logger.Warn("[normalizer] Duplicate column %q renamed to %q", name, deduped)
			name = deduped
		}
		if name != col {
			n.logger.Debug("[normalizer] Column %q → %q", col, name)
		}
		out.Columns[i] = name
	}

	schema := &models.Schema{
		Date:         out.Index(models.ColumnDate),
		Time:         out.Index(models.ColumnTime),
		Severity:     out.Index(models.ColumnSeverity),
		Locality:     out.Index(models.ColumnLocality),
		VehicleClass: out.Index(models.ColumnVehicleClass),
		RoadDesign:   out.Index(models.ColumnRoadDesign),
	}
	for _, required := range models.RequiredColumns {
		if out.Index(required) < 0 {
			return nil, nil, &models.SchemaError{Column: required, Available: out.Columns}
		}
	}
	if schema.VehicleClass < 0 || schema.RoadDesign < 0 {
		n.logger.Warn("[normalizer] Optional predictor columns missing (vehicle_class=%t, road_design=%t); they will be encoded as absent",
			schema.VehicleClass >= 0, schema.RoadDesign >= 0)
	}

	width := len(out.Columns)
	for i, row := range out.Rows {
		cells := make([]string, width)
		for j := 0; j < width && j < len(row); j++ {
			cells[j] = normaliseText(row[j])
		}
		code, _ := CanonicalLocality(cells[schema.Locality])
		cells[schema.Locality] = strconv.Itoa(code)
		out.Rows[i] = cells
	}

	return out, schema, nil
}

// NormalizeColumnName lowercases a header, folds diacritics to their base
// Latin letter, turns whitespace and . ( ) - / into underscores, drops any
// other non-ASCII rune and collapses repeated underscores.
func NormalizeColumnName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(fold, s); err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsSpace(r), strings.ContainsRune(".()-/", r):
			b.WriteByte('_')
		case r > unicode.MaxASCII:
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}

	out := b.String()
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	return strings.Trim(out, "_")
}

// CanonicalLocality resolves a raw locality cell to a code in the 1–20
// lookup. Integer spellings ("7", "07", "7.0") and locality names are
// accepted; anything else maps to models.LocalityUnknown.
func CanonicalLocality(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.LocalityUnknown, false
	}
	if code, ok := parseIntegral(raw); ok {
		if models.KnownLocality(code) {
			return code, true
		}
		return models.LocalityUnknown, false
	}
	key := NormalizeColumnName(raw)
	for _, code := range models.LocalityCodes() {
		if NormalizeColumnName(models.LocalityName(code)) == key {
			return code, true
		}
	}
	return models.LocalityUnknown, false
}

// parseIntegral accepts "2" and "2.0" but rejects "2.5".
func parseIntegral(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
