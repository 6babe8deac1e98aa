// ABOUTME: Civic issue records as served by the backend
// ABOUTME: Defines the six issue categories and the backend JSON shape

package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// IssueType is the category of a reported issue.
type IssueType string

const (
	IssueTypePothole        IssueType = "POTHOLE"
	IssueTypeStreetLight    IssueType = "STREET_LIGHT_NOT_WORKING"
	IssueTypeGarbageDump    IssueType = "GARBAGE_DUMP"
	IssueTypeWaterLeakage   IssueType = "WATER_LEAKAGE"
	IssueTypeSewageOverflow IssueType = "SEWAGE_OVERFLOW"
	IssueTypeOther          IssueType = "OTHER"
)

// DefaultIssueType is preselected in a new draft.
const DefaultIssueType = IssueTypePothole

// IssueTypes lists the known categories in display order.
var IssueTypes = []IssueType{
	IssueTypePothole,
	IssueTypeStreetLight,
	IssueTypeGarbageDump,
	IssueTypeWaterLeakage,
	IssueTypeSewageOverflow,
	IssueTypeOther,
}

var issueTypeLabels = map[IssueType]string{
	IssueTypePothole:        "Pothole",
	IssueTypeStreetLight:    "Street Light Not Working",
	IssueTypeGarbageDump:    "Garbage Dump",
	IssueTypeWaterLeakage:   "Water Leakage",
	IssueTypeSewageOverflow: "Sewage Overflow",
	IssueTypeOther:          "Other",
}

// Known reports whether t is one of the six categories.
func (t IssueType) Known() bool {
	_, ok := issueTypeLabels[t]
	return ok
}

// Label returns the human-readable name. Unknown types are title-cased
// from their underscore form so server-side additions still display.
func (t IssueType) Label() string {
	if label, ok := issueTypeLabels[t]; ok {
		return label
	}
	words := strings.Split(strings.ToLower(string(t)), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// issueTypeAliases are short names people type for the longer categories.
var issueTypeAliases = map[string]IssueType{
	"STREET_LIGHT": IssueTypeStreetLight,
	"STREETLIGHT":  IssueTypeStreetLight,
}

// ParseIssueType accepts a category name in any case, with spaces or dashes
// in place of underscores, or one of the short aliases.
func ParseIssueType(s string) (IssueType, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	if t, ok := issueTypeAliases[norm]; ok {
		return t, nil
	}
	t := IssueType(norm)
	if !t.Known() {
		return "", fmt.Errorf("unknown issue type %q", s)
	}
	return t, nil
}

// IssueID is the backend identifier. The backend may encode it as a
// JSON number or a string.
type IssueID string

// UnmarshalJSON accepts both numeric and string IDs.
func (id *IssueID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = IssueID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("issue id: %w", err)
	}
	*id = IssueID(n.String())
	return nil
}

// Issue is a reported civic issue. Issues are created server-side and
// are never mutated by the client.
type Issue struct {
	ID          IssueID    `json:"id"`
	IssueType   IssueType  `json:"issueType"`
	Description string     `json:"description"`
	Coordinate  Coordinate `json:"-"`
	ImageURL    *string    `json:"imgUrl,omitempty"`
	Locality    *string    `json:"localCity,omitempty"`
}

// issueJSON is the wire shape, with flat latitude/longitude.
type issueJSON struct {
	ID          IssueID   `json:"id"`
	IssueType   IssueType `json:"issueType"`
	Description string    `json:"description"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	ImageURL    *string   `json:"imgUrl,omitempty"`
	Locality    *string   `json:"localCity,omitempty"`
}

// MarshalJSON writes the backend wire shape.
func (i Issue) MarshalJSON() ([]byte, error) {
	return json.Marshal(issueJSON{
		ID:          i.ID,
		IssueType:   i.IssueType,
		Description: i.Description,
		Latitude:    i.Coordinate.Latitude,
		Longitude:   i.Coordinate.Longitude,
		ImageURL:    i.ImageURL,
		Locality:    i.Locality,
	})
}

// UnmarshalJSON reads the backend wire shape.
func (i *Issue) UnmarshalJSON(data []byte) error {
	var raw issueJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*i = Issue{
		ID:          raw.ID,
		IssueType:   raw.IssueType,
		Description: raw.Description,
		Coordinate:  Coordinate{Latitude: raw.Latitude, Longitude: raw.Longitude},
		ImageURL:    raw.ImageURL,
		Locality:    raw.Locality,
	}
	return nil
}

// ImageURLOrEmpty returns the image URL or "".
func (i Issue) ImageURLOrEmpty() string {
	if i.ImageURL == nil {
		return ""
	}
	return *i.ImageURL
}

// LocalityOrEmpty returns the locality or "".
func (i Issue) LocalityOrEmpty() string {
	if i.Locality == nil {
		return ""
	}
	return *i.Locality
}
