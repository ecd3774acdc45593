package domain

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPointTableVersion identifies the built-in scoring policy.
const DefaultPointTableVersion = "2024-01"

// PointTable maps activity kinds to their default point delta. Tables are
// values: build one with DefaultPointTable or LoadPointTable and hand it to the
// service, never mutate a shared instance.
type PointTable struct {
	Version string
	points  map[ActivityKind]int
}

// DefaultPointTable returns the built-in scoring policy.
func DefaultPointTable() PointTable {
	return PointTable{
		Version: DefaultPointTableVersion,
		points: map[ActivityKind]int{
			KindAccountCreated:         5,
			KindProfileCompleted:       3,
			KindProjectCreated:         15,
			KindProjectJoined:          5,
			KindProjectCompleted:       25,
			KindTaskCompleted:          8,
			KindPositiveReviewReceived: 10,
			KindNegativeReviewReceived: -15,
			KindAdminAdjustment:        0,
			KindLongevityBonus:         5,
			KindInactivePenalty:        -5,
			KindProjectAbandoned:       -20,
			KindCollaborationSuccess:   12,
			KindCommunicationExcellent: 8,
			KindDeadlineMissed:         -10,
			KindHelpfulContribution:    6,
		},
	}
}

// PointsFor returns the configured delta for kind, or 0 when the kind is unknown.
func (t PointTable) PointsFor(kind ActivityKind) int {
	return t.points[kind]
}

// WithOverrides returns a copy of t with the supplied deltas replaced. An
// unversioned set of overrides is labelled as a custom variant of t.
func (t PointTable) WithOverrides(version string, overrides map[ActivityKind]int) (PointTable, error) {
	out := PointTable{Version: t.Version, points: make(map[ActivityKind]int, len(t.points))}
	for kind, pts := range t.points {
		out.points[kind] = pts
	}
	for kind, pts := range overrides {
		if !kind.Valid() {
			return PointTable{}, fmt.Errorf("point table: unknown activity kind %q", kind)
		}
		out.points[kind] = pts
	}
	switch {
	case version != "":
		out.Version = version
	case len(overrides) > 0:
		out.Version = t.Version + "+custom"
	}
	return out, nil
}

type pointTableFile struct {
	Version string         `yaml:"version"`
	Points  map[string]int `yaml:"points"`
}

// LoadPointTable reads a YAML document of the form
//
//	version: 2025-02
//	points:
//	  project_completed: 30
//
// and applies it on top of the default table. An empty path yields the defaults.
func LoadPointTable(path string) (PointTable, error) {
	if path == "" {
		return DefaultPointTable(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return PointTable{}, fmt.Errorf("point table: %w", err)
	}
	return ParsePointTable(raw)
}

// ParsePointTable decodes a YAML override document.
func ParsePointTable(raw []byte) (PointTable, error) {
	var file pointTableFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return PointTable{}, fmt.Errorf("point table: %w", err)
	}
	overrides := make(map[ActivityKind]int, len(file.Points))
	for name, pts := range file.Points {
		overrides[ActivityKind(name)] = pts
	}
	return DefaultPointTable().WithOverrides(file.Version, overrides)
}
