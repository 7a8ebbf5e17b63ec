// Package render formats rows and key/value listings as bordered text tables.
package render

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/oda/rowdb"
	"github.com/oda/rowdb/internal/row"
)

var (
	borderColor = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7C79FF"}

	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(borderColor)).
		StyleFunc(func(r, _ int) lipgloss.Style {
			if r == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

// Rows renders rows under an ID / USERNAME / EMAIL header.
func Rows(rows []row.Row) string {
	t := newTable("ID", "USERNAME", "EMAIL")
	for _, r := range rows {
		t.Row(strconv.FormatUint(uint64(r.ID), 10), r.Username, r.Email)
	}
	return t.Render()
}

// Pair is one line of a key/value listing.
type Pair struct {
	Key   string
	Value string
}

// Pairs renders a two-column listing.
func Pairs(keyHeader, valueHeader string, pairs []Pair) string {
	t := newTable(keyHeader, valueHeader)
	for _, p := range pairs {
		t.Row(p.Key, p.Value)
	}
	return t.Render()
}

// Stats renders table and page cache counters.
func Stats(st rowdb.Stats) string {
	itoa := strconv.Itoa
	utoa := func(n uint64) string { return strconv.FormatUint(n, 10) }
	return Pairs("STAT", "VALUE", []Pair{
		{"path", st.Path},
		{"backend", st.Backend},
		{"rows", itoa(st.Rows)},
		{"max rows", itoa(st.MaxRows)},
		{"rows per page", itoa(st.RowsPerPage)},
		{"pages", itoa(st.Pages)},
		{"max pages", itoa(st.MaxPages)},
		{"resident pages", itoa(st.Resident)},
		{"cache hits", utoa(st.CacheHits)},
		{"cache misses", utoa(st.CacheMisses)},
		{"evictions", utoa(st.Evictions)},
		{"page writes", utoa(st.Flushes)},
	})
}
