// Package worldstate resolves opaque node identifiers against the
// structured metadata source.
package worldstate

import (
	"errors"
	"strings"
)

const Unknown = "Unknown"

var ErrNotFound = errors.New("worldstate: node not found")

// Node is one metadata record as served upstream. Value carries a
// combined "Name (Planet)" label.
type Node struct {
	Value string `json:"value"`
	Type  string `json:"type"`
	Enemy string `json:"enemy"`
}

// Nodes is the top-level shape of the metadata source.
type Nodes map[string]Node

// Info is the resolved, human-readable view of a node. Fields are
// never empty; anything the source omits comes back as Unknown.
type Info struct {
	Planet      string
	NodeName    string
	MissionType string
	Faction     string
}

// Resolve looks the id up and splits the combined label. A missing id
// is ErrNotFound, which callers treat the same as empty fields: skip
// enrichment for this record.
func Resolve(nodes Nodes, id string) (Info, error) {
	n, ok := nodes[id]
	if !ok {
		return Info{}, ErrNotFound
	}

	name, planet := splitLabel(n.Value, id)
	info := Info{
		Planet:      planet,
		NodeName:    name,
		MissionType: n.Type,
		Faction:     n.Enemy,
	}
	if info.MissionType == "" {
		info.MissionType = Unknown
	}
	if info.Faction == "" {
		info.Faction = Unknown
	}
	return info, nil
}

// splitLabel breaks "Casta (Ceres)" into name and planet. Without the
// parenthesis pattern the whole label is the name.
func splitLabel(value, fallback string) (name, planet string) {
	if value == "" {
		return fallback, Unknown
	}
	open := strings.LastIndex(value, " (")
	if open < 0 || !strings.HasSuffix(value, ")") {
		return value, Unknown
	}
	name = strings.TrimSpace(value[:open])
	planet = strings.TrimSpace(value[open+2 : len(value)-1])
	if name == "" {
		name = fallback
	}
	if planet == "" {
		planet = Unknown
	}
	return name, planet
}
