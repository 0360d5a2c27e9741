package store

import "time"

// Snapshot is one project's registry at a point in time.
type Snapshot struct {
	Root              string    `json:"root" yaml:"root"`
	Name              string    `json:"name" yaml:"name"`
	PodPrefix         string    `json:"podPrefix" yaml:"podPrefix"`
	ModuleUnification bool      `json:"moduleUnification" yaml:"moduleUnification"`
	Namespaces        bool      `json:"namespaces" yaml:"namespaces"`
	IndexedAt         time.Time `json:"indexedAt" yaml:"indexedAt"`
	Addons            []Addon   `json:"addons" yaml:"addons"`
	Symbols           []Symbol  `json:"symbols" yaml:"symbols"`
}

// Addon is an addon composed into a snapshotted project, in project order.
type Addon struct {
	Name   string `json:"name" yaml:"name"`
	Root   string `json:"root" yaml:"root"`
	Script string `json:"script,omitempty" yaml:"script,omitempty"`
}

// Symbol is one registry triple. Hash is the content hash of Path when it
// was read, or empty.
type Symbol struct {
	Type string `json:"type" yaml:"type"`
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
	Test bool   `json:"test,omitempty" yaml:"test,omitempty"`
	Hash string `json:"hash,omitempty" yaml:"hash,omitempty"`
}

// ProjectInfo summarizes a stored snapshot.
type ProjectInfo struct {
	Root      string    `json:"root" yaml:"root"`
	Name      string    `json:"name" yaml:"name"`
	Symbols   int       `json:"symbols" yaml:"symbols"`
	IndexedAt time.Time `json:"indexedAt" yaml:"indexedAt"`
}
