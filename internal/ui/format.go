// ABOUTME: Terminal UI formatting utilities
// ABOUTME: Provides human-readable output for issues, fixes and places

package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/harper/civic/internal/geocode"
	"github.com/harper/civic/internal/models"
)

var faint = color.New(color.Faint)

// typeColors approximates the map marker colours on a terminal palette.
var typeColors = map[models.IssueType]*color.Color{
	models.IssueTypePothole:        color.New(color.FgRed, color.Bold),
	models.IssueTypeStreetLight:    color.New(color.FgYellow, color.Bold),
	models.IssueTypeGarbageDump:    color.New(color.FgGreen, color.Bold),
	models.IssueTypeWaterLeakage:   color.New(color.FgBlue, color.Bold),
	models.IssueTypeSewageOverflow: color.New(color.FgMagenta, color.Bold),
}

func typeColor(t models.IssueType) *color.Color {
	if c, ok := typeColors[t]; ok {
		return c
	}
	return color.New(color.FgWhite)
}

// FormatIssueType renders the coloured type badge.
func FormatIssueType(t models.IssueType) string {
	return typeColor(t).Sprintf("[%s]", t.Label())
}

// FormatCoordinate formats a coordinate with four decimals.
func FormatCoordinate(c models.Coordinate) string {
	return fmt.Sprintf("(%.4f, %.4f)", c.Latitude, c.Longitude)
}

// FormatIssue formats an issue as a single list line.
func FormatIssue(issue models.Issue) string {
	desc := truncate(issue.Description, 60)
	line := fmt.Sprintf("%s %s %s",
		faint.Sprintf("#%s", issue.ID),
		FormatIssueType(issue.IssueType),
		desc)
	if city := issue.LocalityOrEmpty(); city != "" {
		line += " " + color.CyanString(city)
	}
	return line + " " + faint.Sprint(FormatCoordinate(issue.Coordinate))
}

// FormatIssueDetails formats the details sheet for one issue.
func FormatIssueDetails(issue models.Issue) string {
	var sb strings.Builder
	sb.WriteString(FormatIssueType(issue.IssueType))
	sb.WriteString(faint.Sprintf("  #%s\n\n", issue.ID))
	sb.WriteString(issue.Description)
	sb.WriteString("\n\n")

	city := issue.LocalityOrEmpty()
	if city == "" {
		city = faint.Sprint("unknown")
	}
	sb.WriteString(fmt.Sprintf("%s %s\n", color.New(color.Bold).Sprint("Village/City:"), city))
	sb.WriteString(fmt.Sprintf("%s %s\n", color.New(color.Bold).Sprint("Location:"), FormatCoordinate(issue.Coordinate)))
	if img := issue.ImageURLOrEmpty(); img != "" {
		sb.WriteString(fmt.Sprintf("%s %s\n", color.New(color.Bold).Sprint("Image:"), color.BlueString(img)))
	}
	return sb.String()
}

// FormatUserLocation formats the user position, flagging the fallback.
func FormatUserLocation(c models.Coordinate, fallback bool) string {
	if fallback {
		return fmt.Sprintf("%s %s", color.YellowString(FormatCoordinate(c)), faint.Sprint("(location unavailable, using default)"))
	}
	return color.CyanString(FormatCoordinate(c))
}

// FormatFix formats a recorded fix for history display.
func FormatFix(fix *models.Fix) string {
	if fix == nil {
		return faint.Sprint("  (no location)")
	}
	coords := FormatCoordinate(fix.Coordinate)
	timeStr := fix.RecordedAt.Local().Format("Jan 2, 3:04 PM")

	if fix.Label != nil && *fix.Label != "" {
		return fmt.Sprintf("  %s %s - %s",
			color.CyanString(*fix.Label),
			faint.Sprint(coords),
			timeStr)
	}
	return fmt.Sprintf("  %s - %s", color.CyanString(coords), timeStr)
}

// FormatPlace formats a place search result.
func FormatPlace(i int, p geocode.Place) string {
	line := fmt.Sprintf("%s %s %s", faint.Sprintf("%d.", i), p.Name, faint.Sprint(FormatCoordinate(p.Coordinate)))
	if p.Kind != "" {
		line += " " + faint.Sprintf("[%s]", p.Kind)
	}
	return line
}

// FormatValidationErrors lists field errors in a stable order.
func FormatValidationErrors(errs models.ValidationErrors) string {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var sb strings.Builder
	for _, f := range fields {
		sb.WriteString(fmt.Sprintf("  %s %s: %s\n", color.RedString("✗"), f, errs[f]))
	}
	return sb.String()
}

// FormatDescriptionCount renders the "n/500" counter.
func FormatDescriptionCount(n int, warn bool) string {
	s := fmt.Sprintf("%d/%d", n, models.MaxDescriptionLength)
	if warn {
		return color.YellowString(s)
	}
	return faint.Sprint(s)
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// FormatRelativeTime formats a time as relative to now.
func FormatRelativeTime(t time.Time) string {
	diff := time.Since(t)

	// Handle future times (clock skew, bad data)
	if diff < 0 {
		return color.YellowString("in the future")
	}

	if diff < time.Minute {
		return "just now"
	}
	if diff < time.Hour {
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	}
	if diff < 24*time.Hour {
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	}
	days := int(diff.Hours() / 24)
	if days == 1 {
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", days)
}
