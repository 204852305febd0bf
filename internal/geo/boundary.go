// Package geo answers "who is inside this geographic boundary" via spatial
// containment search over the tenant's status records. The boundary is a
// closed ring of longitude/latitude pairs loaded once from a static
// definition file and converted to the store's WKT polygon literal.
package geo

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/burrowhq/presence/pkg/directory"
)

// Boundary is a closed polygon boundary. The ring is an ordered vertex list;
// the first vertex implicitly closes with the last, so definitions need not
// repeat it.
type Boundary struct {
	Name string               `yaml:"name"`
	Ring []directory.Location `yaml:"ring"`
}

// LoadBoundary reads a boundary definition from a YAML file:
//
//	name: campus
//	ring:
//	  - longitude: -0.1278
//	    latitude: 51.5074
//	  - ...
func LoadBoundary(path string) (*Boundary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read boundary file: %w", err)
	}
	var b Boundary
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse boundary file: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid boundary in %s: %w", path, err)
	}
	return &b, nil
}

// Validate checks that the ring describes a polygon: at least three vertices
// before the implicit closure.
func (b *Boundary) Validate() error {
	ring := b.openRing()
	if len(ring) < 3 {
		return fmt.Errorf("boundary ring needs at least 3 distinct vertices, got %d", len(ring))
	}
	return nil
}

// WKT renders the boundary as a WKT polygon literal with longitude first in
// each vertex: POLYGON ((lon lat, lon lat, ...)). The ring is explicitly
// closed by repeating the first vertex, as WKT requires.
func (b *Boundary) WKT() string {
	ring := b.openRing()
	parts := make([]string, 0, len(ring)+1)
	for _, v := range ring {
		parts = append(parts, formatVertex(v))
	}
	parts = append(parts, formatVertex(ring[0]))
	return fmt.Sprintf("POLYGON ((%s))", strings.Join(parts, ", "))
}

// openRing returns the ring without a trailing duplicate of the first
// vertex, so definitions that already close explicitly are handled too.
func (b *Boundary) openRing() []directory.Location {
	ring := b.Ring
	if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		ring = ring[:len(ring)-1]
	}
	return ring
}

func formatVertex(v directory.Location) string {
	return strconv.FormatFloat(v.Longitude, 'f', -1, 64) + " " +
		strconv.FormatFloat(v.Latitude, 'f', -1, 64)
}
