package directory

import (
	"fmt"
	"strconv"
	"strings"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Records are stored as flat string-to-string hashes so individual fields
// stay queryable by the search indexes. The location is encoded as a single
// WKT point literal in the "location" field; the spatial index consumes that
// field directly as a geo shape.

// FormatPointWKT renders a location as a WKT point literal.
// Longitude comes first: POINT(lon lat). Swapping the axes silently
// misinterprets the globe, so the order is pinned by tests.
func FormatPointWKT(loc Location) string {
	return fmt.Sprintf("POINT (%s %s)",
		strconv.FormatFloat(loc.Longitude, 'f', -1, 64),
		strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
}

// ParsePointWKT parses a WKT point literal produced by FormatPointWKT.
// Accepts both "POINT (x y)" and "POINT(x y)" spellings.
func ParsePointWKT(s string) (Location, error) {
	trimmed := strings.TrimSpace(s)
	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "POINT") {
		return Location{}, fmt.Errorf("invalid point literal %q: missing POINT prefix", s)
	}
	open := strings.Index(trimmed, "(")
	end := strings.LastIndex(trimmed, ")")
	if open < 0 || end < open {
		return Location{}, fmt.Errorf("invalid point literal %q: unbalanced parentheses", s)
	}
	coords := strings.Fields(trimmed[open+1 : end])
	if len(coords) != 2 {
		return Location{}, fmt.Errorf("invalid point literal %q: want 2 coordinates, got %d", s, len(coords))
	}
	lon, err := strconv.ParseFloat(coords[0], 64)
	if err != nil {
		return Location{}, fmt.Errorf("invalid longitude in %q: %w", s, err)
	}
	lat, err := strconv.ParseFloat(coords[1], 64)
	if err != nil {
		return Location{}, fmt.Errorf("invalid latitude in %q: %w", s, err)
	}
	return Location{Longitude: lon, Latitude: lat}, nil
}

// RecordToHash converts a StatusRecord to Redis hash fields.
// The location field is only present when the record is geolocated; callers
// deciding whether an omitted location should clear the stored one must do
// so explicitly (HDEL), since HSET merges fields.
func RecordToHash(r *StatusRecord) map[string]interface{} {
	hash := map[string]interface{}{
		"username": r.Username,
		"status":   string(r.Status),
		"message":  r.Message,
		"icon":     r.Icon,
	}
	if r.Location != nil {
		hash["location"] = FormatPointWKT(*r.Location)
	}
	return hash
}

// HashToRecord converts Redis hash fields back to a StatusRecord.
// An absent or empty location field yields a record without a location;
// a malformed location field is an error.
func HashToRecord(hash map[string]string) (*StatusRecord, error) {
	record := &StatusRecord{
		Username: hash["username"],
		Status:   Status(hash["status"]),
		Message:  hash["message"],
		Icon:     hash["icon"],
	}
	if record.Icon == "" {
		record.Icon = DefaultIcon
	}
	if wkt := hash["location"]; wkt != "" {
		loc, err := ParsePointWKT(wkt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse location field: %w", err)
		}
		record.Location = &loc
	}
	return record, nil
}
