// Package core holds the dataset domain: entries, the document store
// contract, the aggregator that appends to a dataset and the submission
// pipeline.
package core

import (
	"fmt"
	"strings"
)

// Entry is one persisted (code, CAT, comment) triple.
// Field names are part of the stored document schema.
type Entry struct {
	Code    string   `json:"code" yaml:"code"`
	CAT     []string `json:"CAT" yaml:"CAT"`
	Comment string   `json:"comment" yaml:"comment"`
}

// BuildEntry composes an Entry. It performs no validation; the CAT slice is
// copied so later changes by the caller do not leak into the entry.
func BuildEntry(code string, cat []string, comment string) Entry {
	tags := make([]string, len(cat))
	copy(tags, cat)
	return Entry{Code: code, CAT: tags, Comment: comment}
}

// Dataset is the typed view of a dataset document.
type Dataset struct {
	Entries []Entry `json:"entries" yaml:"entries"`
}

const (
	// DefaultCollection and DefaultDocument address the shared dataset.
	DefaultCollection = "datasets"
	DefaultDocument   = "customData"

	// EntriesField is the document field holding the entry list.
	EntriesField = "entries"
)

// DocumentID addresses one document in a store.
type DocumentID struct {
	Collection string
	Name       string
}

// DefaultDataset is the well-known dataset document.
var DefaultDataset = DocumentID{Collection: DefaultCollection, Name: DefaultDocument}

func (id DocumentID) String() string {
	return id.Collection + "/" + id.Name
}

// ParseDocumentID parses "collection/name".
func ParseDocumentID(s string) (DocumentID, error) {
	collection, name, ok := strings.Cut(strings.TrimSpace(s), "/")
	id := DocumentID{Collection: collection, Name: name}
	if !ok || !id.Valid() || strings.Contains(name, "/") {
		return DocumentID{}, fmt.Errorf("invalid dataset id %q (want collection/name)", s)
	}
	return id, nil
}

// Valid reports whether both parts of the ID are set.
func (id DocumentID) Valid() bool {
	return id.Collection != "" && id.Name != ""
}

// Data is the field mapping of a document.
type Data map[string]any

// Snapshot is the result of reading a document.
// Version is opaque and store specific; it is empty when the document does not exist.
type Snapshot struct {
	ID      DocumentID
	Exists  bool
	Data    Data
	Version string
}

// EventType represents the kind of change observed on a document.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change in the store.
type Event struct {
	Type      EventType
	ID        DocumentID
	Timestamp int64 // Unix timestamp
}

func (e Event) String() string {
	return string(e.Type) + " " + e.ID.String()
}

type contextKey string

// ChangeReasonKey is the context key for passing the change reason (commit
// message) to versioned stores.
const ChangeReasonKey contextKey = "change_reason"
