package services

import (
	"strconv"
	"strings"

	"accident-analytics/models"
)

// Profile summarises a raw table: inferred type, null and unique counts per
// column, plus the first headRows rows.
func Profile(t *models.Table, headRows int) *models.DatasetProfile {
	p := &models.DatasetProfile{
		Rows:    len(t.Rows),
		Header:  append([]string(nil), t.Columns...),
		Columns: make([]models.ColumnProfile, len(t.Columns)),
	}

	for j, name := range t.Columns {
		col := models.ColumnProfile{Name: name}
		unique := make(map[string]struct{})
		allInt, allFloat := true, true

		for _, row := range t.Rows {
			v := strings.TrimSpace(models.Cell(row, j))
			if v == "" {
				col.Nulls++
				continue
			}
			col.NonNull++
			unique[v] = struct{}{}
			if allInt {
				if _, err := strconv.ParseInt(v, 10, 64); err != nil {
					allInt = false
				}
			}
			if allFloat {
				if _, err := strconv.ParseFloat(v, 64); err != nil {
					allFloat = false
				}
			}
		}

		col.Unique = len(unique)
		switch {
		case col.NonNull == 0:
			col.Type = "empty"
		case allInt:
			col.Type = "int64"
		case allFloat:
			col.Type = "float64"
		default:
			col.Type = "object"
		}
		p.Columns[j] = col
	}

	if headRows > len(t.Rows) {
		headRows = len(t.Rows)
	}
	for _, row := range t.Rows[:headRows] {
		p.Head = append(p.Head, append([]string(nil), row...))
	}
	return p
}
