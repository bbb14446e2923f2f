package analysis

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// PageSize is the fixed number of table rows per page.
const PageSize = 10

// SortDirection represents the sort direction.
type SortDirection string

const (
	// SortAsc represents ascending sort order.
	SortAsc SortDirection = "asc"
	// SortDesc represents descending sort order.
	SortDesc SortDirection = "desc"
)

// SortState is the active sort of a result's table.
type SortState struct {
	Key       string        `json:"key"`
	Direction SortDirection `json:"direction"`
}

// ViewState is the per-result table view: active sort plus current page.
// Changing the sort keeps the page, since sorting never changes the row
// count.
type ViewState struct {
	Sort *SortState `json:"sort,omitempty"`
	Page int        `json:"page"`
}

// ToggleSort applies a header click to the current sort state: a new key
// starts ascending, clicking the active key flips the direction.
func ToggleSort(cur *SortState, key string) SortState {
	if cur != nil && cur.Key == key {
		dir := SortAsc
		if cur.Direction == SortAsc {
			dir = SortDesc
		}
		return SortState{Key: key, Direction: dir}
	}
	return SortState{Key: key, Direction: SortAsc}
}

// SortRows stable-sorts rows in place by the state's column. A nil state
// leaves the backend's order untouched. Rows whose cell is nil sort last in
// either direction.
func SortRows(rows []TableRow, state *SortState) {
	if state == nil || state.Key == "" {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return lessCells(cellValue(rows[i], state.Key), cellValue(rows[j], state.Key), state.Direction)
	})
}

// cellValue returns the raw comparable value of a row cell by column key.
// Unknown keys compare as nil, which makes the sort a no-op.
func cellValue(r TableRow, key string) any {
	switch key {
	case "date":
		return r.Date
	case "imageId":
		return r.ImageID
	case r.Type.ValueKey():
		return r.Value
	case "originalCloudCover":
		return r.OriginalCloudCover
	case "adjustedCloudCover":
		return r.AdjustedCloudCover
	case "cloudMaskingApplied":
		return r.CloudMaskingApplied
	case "backscatterVh":
		return r.BackscatterVH
	case "vvVhRatio":
		return r.VVVHRatio
	case "orbitDirection":
		return r.OrbitDirection
	}
	return nil
}

func isNilCell(v any) bool {
	if v == nil {
		return true
	}
	f, ok := v.(*float64)
	return ok && f == nil
}

func lessCells(a, b any, dir SortDirection) bool {
	an, bn := isNilCell(a), isNilCell(b)
	switch {
	case an && bn:
		return false
	case an:
		return false
	case bn:
		return true
	}
	c := compareCells(a, b)
	if dir == SortDesc {
		return c > 0
	}
	return c < 0
}

// compareCells compares two same-typed cell values. Dates are ISO strings,
// so lexical order is chronological.
func compareCells(a, b any) int {
	switch av := a.(type) {
	case *float64:
		bv, ok := b.(*float64)
		if !ok {
			return 0
		}
		switch {
		case *av < *bv:
			return -1
		case *av > *bv:
			return 1
		}
		return 0
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0
		}
		return strings.Compare(av, bv)
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0
		}
		switch {
		case !av && bv:
			return -1
		case av && !bv:
			return 1
		}
		return 0
	}
	return 0
}

// TotalPages returns ceil(n / PageSize).
func TotalPages(n int) int {
	return (n + PageSize - 1) / PageSize
}

// ClampPage bounds a page navigation target to [1, total]. With no pages at
// all the view stays on page 1.
func ClampPage(page, total int) int {
	if total < 1 {
		return 1
	}
	if page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}

// PageSlice returns the rows of one page. Pages outside [1, TotalPages]
// yield no rows.
func PageSlice(rows []TableRow, page int) []TableRow {
	if page < 1 {
		return nil
	}
	start := (page - 1) * PageSize
	if start >= len(rows) {
		return nil
	}
	end := start + PageSize
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

// Column describes one table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// ValueLabel returns the header label of the per-type value column.
func ValueLabel(t Type) string {
	switch t {
	case TypeLST:
		return "LST (°C)"
	case TypeSAR:
		return "Backscatter VV (dB)"
	default:
		return "NDVI"
	}
}

// Columns returns the table columns for an analysis family: the radar
// block for SAR, the optical block otherwise.
func Columns(t Type) []Column {
	cols := []Column{
		{Key: "date", Label: "Date"},
		{Key: "imageId", Label: "Image ID"},
		{Key: t.ValueKey(), Label: ValueLabel(t)},
	}
	if t.IsRadar() {
		return append(cols,
			Column{Key: "backscatterVh", Label: "Backscatter VH (dB)"},
			Column{Key: "vvVhRatio", Label: "VV/VH Ratio"},
			Column{Key: "orbitDirection", Label: "Orbit Direction"},
		)
	}
	return append(cols,
		Column{Key: "originalCloudCover", Label: "Original Cloud Cover"},
		Column{Key: "adjustedCloudCover", Label: "Adjusted Cloud Cover"},
		Column{Key: "cloudMaskingApplied", Label: "Cloud Masking Applied"},
	)
}

// FormatValue renders a measurement for display. NDVI keeps four decimals,
// temperatures and backscatter two. Nil renders as "N/A".
func FormatValue(t Type, v *float64) string {
	if v == nil {
		return "N/A"
	}
	switch t {
	case TypeLST, TypeSAR:
		return fmt.Sprintf("%.2f", *v)
	default:
		return fmt.Sprintf("%.4f", *v)
	}
}

// FormatRatio renders a VV/VH ratio with three decimals.
func FormatRatio(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.3f", *v)
}

// FormatCloudCover renders a cloud cover percentage with one decimal.
func FormatCloudCover(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", *v)
}

// FormatYesNo renders a flag the way the table badges it.
func FormatYesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// DisplayRow renders a row's cells as display strings keyed by column key.
func DisplayRow(r TableRow) map[string]string {
	cells := map[string]string{
		"date":    r.Date,
		"imageId": r.ImageID,
	}
	cells[r.Type.ValueKey()] = FormatValue(r.Type, r.Value)
	if r.Type.IsRadar() {
		cells["backscatterVh"] = FormatValue(r.Type, r.BackscatterVH)
		cells["vvVhRatio"] = FormatRatio(r.VVVHRatio)
		cells["orbitDirection"] = r.OrbitDirection
	} else {
		cells["originalCloudCover"] = FormatCloudCover(r.OriginalCloudCover)
		cells["adjustedCloudCover"] = FormatCloudCover(r.AdjustedCloudCover)
		cells["cloudMaskingApplied"] = FormatYesNo(r.CloudMaskingApplied)
	}
	return cells
}

// PageView is one rendered table page.
type PageView struct {
	Columns    []Column            `json:"columns"`
	Rows       []map[string]string `json:"rows"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"pageSize"`
	TotalPages int                 `json:"totalPages"`
	TotalRows  int                 `json:"totalRows"`
	Sort       *SortState          `json:"sort,omitempty"`
}

// BuildPage renders the table page a view state selects. The input row
// order is never mutated; sorting works on a copy.
func BuildPage(t Type, rows []TableRow, view ViewState) PageView {
	sorted := slices.Clone(rows)
	SortRows(sorted, view.Sort)

	page := view.Page
	if page == 0 {
		page = 1
	}

	slice := PageSlice(sorted, page)
	display := make([]map[string]string, 0, len(slice))
	for _, row := range slice {
		display = append(display, DisplayRow(row))
	}

	return PageView{
		Columns:    Columns(t),
		Rows:       display,
		Page:       page,
		PageSize:   PageSize,
		TotalPages: TotalPages(len(rows)),
		TotalRows:  len(rows),
		Sort:       view.Sort,
	}
}
