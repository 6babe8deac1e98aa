// ABOUTME: Character-grid rendering of the map view for the terminal
// ABOUTME: Projects the user and issue markers through a headless viewport

package ui

import (
	"fmt"
	"image"
	"strings"

	"github.com/fatih/color"
	"github.com/harper/civic/internal/mapview"
	"github.com/harper/civic/internal/models"
)

// Cell size in pixels; terminal cells are about twice as tall as wide.
const (
	cellWidth  = 8
	cellHeight = 16
)

var typeSymbols = map[models.IssueType]rune{
	models.IssueTypePothole:        'P',
	models.IssueTypeStreetLight:    'L',
	models.IssueTypeGarbageDump:    'G',
	models.IssueTypeWaterLeakage:   'W',
	models.IssueTypeSewageOverflow: 'S',
	models.IssueTypeOther:          'O',
}

func typeSymbol(t models.IssueType) rune {
	if r, ok := typeSymbols[t]; ok {
		return r
	}
	return '?'
}

// GridSize returns the viewport pixel size for a cols x rows grid.
func GridSize(cols, rows int) image.Point {
	return image.Pt(cols*cellWidth, rows*cellHeight)
}

type cell struct {
	r     rune
	color *color.Color
}

// RenderMap draws the viewport as a character grid. Issues are drawn with
// their type letter; the user is '@' and wins any shared cell. Markers
// outside the viewport are counted below the grid.
func RenderMap(vp *mapview.Viewport, user *mapview.UserMarker, markers []mapview.Marker) string {
	size := vp.Size()
	cols, rows := size.X/cellWidth, size.Y/cellHeight
	if cols <= 0 || rows <= 0 {
		return ""
	}

	grid := make([][]cell, rows)
	for y := range grid {
		grid[y] = make([]cell, cols)
		for x := range grid[y] {
			grid[y][x] = cell{r: '·', color: faint}
		}
	}

	place := func(c models.Coordinate, ce cell) bool {
		p, ok := vp.CoordinateToScreen(c)
		if !ok {
			return false
		}
		x, y := p.X/cellWidth, p.Y/cellHeight
		if x >= cols || y >= rows {
			return false
		}
		grid[y][x] = ce
		return true
	}

	hidden := 0
	for _, m := range markers {
		if !place(m.Issue.Coordinate, cell{r: typeSymbol(m.Issue.IssueType), color: typeColor(m.Issue.IssueType)}) {
			hidden++
		}
	}
	userShown := false
	if user != nil {
		userShown = place(user.Coordinate, cell{r: '@', color: color.New(color.FgHiBlue, color.Bold)})
	}

	var sb strings.Builder
	border := "+" + strings.Repeat("-", cols) + "+\n"
	sb.WriteString(border)
	for _, row := range grid {
		sb.WriteString("|")
		for _, ce := range row {
			sb.WriteString(ce.color.Sprint(string(ce.r)))
		}
		sb.WriteString("|\n")
	}
	sb.WriteString(border)

	sb.WriteString(fmt.Sprintf("zoom %d, centre %s, %.1f m/px\n",
		vp.Zoom(), FormatCoordinate(vp.Center()), vp.MetersPerPixel()))
	if user != nil && !userShown {
		sb.WriteString(faint.Sprint("you are outside this view\n"))
	}
	if hidden > 0 {
		sb.WriteString(faint.Sprintf("%d issue(s) outside this view\n", hidden))
	}
	return sb.String()
}

// MapLegend lists the marker symbols.
func MapLegend() string {
	parts := []string{color.New(color.FgHiBlue, color.Bold).Sprint("@") + " you"}
	for _, t := range models.IssueTypes {
		parts = append(parts, typeColor(t).Sprint(string(typeSymbol(t)))+" "+t.Label())
	}
	return strings.Join(parts, "  ")
}
