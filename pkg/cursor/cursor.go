// Package cursor tracks incremental sync state per source. The state is
// handed to the connector runtime as an opaque base64(JSON) string and given
// back unchanged on the next sync invocation.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// Version is the current state schema version.
const Version = 1

// ErrInvalidState is returned when a state string cannot be decoded.
var ErrInvalidState = errors.New("cursor: invalid state string")

// Source is the cursor for a single source. Which fields are populated
// depends on the adapter kind: feed adapters track a published-time
// watermark, document-URL adapters track HTTP validators for conditional
// fetches. Adapters treat the whole value as read-at-start, replace-at-end.
type Source struct {
	// LastSync is when this source last completed a successful fetch.
	LastSync time.Time `json:"last_sync,omitempty"`

	// LastPublished is the newest entry publish time seen in a feed.
	LastPublished time.Time `json:"last_published,omitempty"`

	// ETag and LastModified are the HTTP validators from the last
	// successful document fetch, used for conditional re-fetches.
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
}

// IsZero reports whether the cursor carries no sync history (first sync).
func (s Source) IsZero() bool {
	return s.LastSync.IsZero() && s.LastPublished.IsZero() && s.ETag == "" && s.LastModified == ""
}

// State maps source name to its cursor.
type State struct {
	Version int               `json:"v"`
	Sources map[string]Source `json:"sources"`
}

// New creates an empty state, as used on the first sync.
func New() *State {
	return &State{
		Version: Version,
		Sources: make(map[string]Source),
	}
}

// Decode deserializes a state from its opaque string form. An empty string
// yields a fresh empty state.
func Decode(s string) (*State, error) {
	if s == "" {
		return New(), nil
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidState
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, ErrInvalidState
	}
	if st.Sources == nil {
		st.Sources = make(map[string]Source)
	}
	return &st, nil
}

// Encode serializes the state to its opaque string form.
func (st *State) Encode() string {
	if st == nil {
		return ""
	}
	data, err := json.Marshal(st)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// Get returns the cursor for a source, zero-valued if unknown.
func (st *State) Get(name string) Source {
	if st.Sources == nil {
		return Source{}
	}
	return st.Sources[name]
}

// Set replaces the cursor for a source. Callers only do this after the
// source's fetch succeeded; a failed fetch must leave its cursor untouched.
func (st *State) Set(name string, cur Source) {
	if st.Sources == nil {
		st.Sources = make(map[string]Source)
	}
	st.Sources[name] = cur
}
