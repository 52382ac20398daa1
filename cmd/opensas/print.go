// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/iamafool/opensas-sub001/internal/dataset"
	"github.com/iamafool/opensas-sub001/internal/eval"
	"github.com/iamafool/opensas-sub001/internal/value"
)

var (
	colorHeader = lipgloss.Color("#8B5CF6")
	colorMuted  = lipgloss.Color("#6B7280")

	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorHeader).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	numberStyle  = cellStyle.Align(lipgloss.Right)
	missingStyle = numberStyle.Foreground(colorMuted)
	borderStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	footerStyle  = lipgloss.NewStyle().Foreground(colorMuted)
)

// renderDataset draws up to limit rows of d, with an Obs column first.
func renderDataset(d *dataset.Dataset, limit int) string {
	schema := d.Schema()
	n := d.Len()
	if limit > 0 && n > limit {
		n = limit
	}

	kinds := make([][]value.Kind, n)
	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		cells := []string{strconv.Itoa(i + 1)}
		ks := []value.Kind{value.KindNumber}
		for _, name := range schema {
			v := d.Value(i, name)
			cells = append(cells, v.String())
			ks = append(ks, v.Kind())
		}
		rows[i] = cells
		kinds[i] = ks
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(append([]string{"Obs"}, schema...)...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			switch kinds[row][col] {
			case value.KindMissing:
				return missingStyle
			case value.KindNumber:
				return numberStyle
			}
			return cellStyle
		})

	out := t.String()
	if n < d.Len() {
		out += "\n" + footerStyle.Render(fmt.Sprintf("%d of %d rows", n, d.Len()))
	}
	return out
}

// renderCatalog lists each dataset with its size.
func renderCatalog(cat eval.Catalog, names []string) string {
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		d, err := cat.Lookup(name)
		if err != nil || d == nil {
			continue
		}
		rows = append(rows, []string{d.Name(), strconv.Itoa(d.Len()), strconv.Itoa(len(d.Schema()))})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("Dataset", "Rows", "Variables").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col > 0:
				return numberStyle
			}
			return cellStyle
		}).
		String()
}
