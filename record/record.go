// Package record defines the metadata record left on chain for each stored payload,
// and the lookups over them.
//
// A Record tells a reader how to reconstruct a payload:
// its Path (see chainblob.Path.Kind),
// or, for an inline payload, the content itself.
package record

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/bobg/chainblob"
)

// Record is the metadata of one stored payload.
type Record struct {
	Name     string
	Path     chainblob.Path
	Strategy string

	// TotalChunks is a hint.
	// Readers never depend on it.
	TotalChunks int

	// Data is the content of an inline payload.
	Data []byte
}

// Inline tells whether r carries its content rather than a path to it.
func (r Record) Inline() bool {
	return r.Path.Kind() == chainblob.PathInline
}

const encodingBase64 = "base64"

type wire struct {
	Name        string `json:"name,omitempty"`
	Path        string `json:"path"`
	Strategy    string `json:"strategy"`
	TotalChunks int    `json:"total_chunks"`
	Data        string `json:"data,omitempty"`
	Encoding    string `json:"encoding,omitempty"`
}

// Marshal produces the JSON form of r.
// Data that is valid UTF-8 is written as a plain string;
// other data is base64-encoded and flagged as such.
func (r Record) Marshal() ([]byte, error) {
	w := wire{
		Name:        r.Name,
		Path:        string(r.Path),
		Strategy:    r.Strategy,
		TotalChunks: r.TotalChunks,
	}
	if utf8.Valid(r.Data) {
		w.Data = string(r.Data)
	} else {
		w.Data = base64.StdEncoding.EncodeToString(r.Data)
		w.Encoding = encodingBase64
	}
	b, err := json.Marshal(w)
	return b, errors.Wrap(err, "marshaling record")
}

// Field fallback order.
// Records written by other clients use the later names.
var (
	pathFields     = []string{"path", "tail_tx", "onChainPath"}
	strategyFields = []string{"strategy", "type", "method"}
	chunksFields   = []string{"total_chunks", "totalChunks", "chunks"}
	dataFields     = []string{"data", "code", "content"}
)

// Parse decodes a record.
// Each field is taken from the first of its alternate names that is present.
// Raw input that is not a JSON object is taken to be inline content:
// the result is Record{Data: raw}.
// Parse never fails.
func Parse(raw []byte) Record {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Record{Data: raw}
	}

	r := Record{
		Name:     stringField(fields, "name"),
		Path:     chainblob.Path(stringField(fields, pathFields...)),
		Strategy: stringField(fields, strategyFields...),
	}
	r.TotalChunks = intField(fields, chunksFields...)

	data := stringField(fields, dataFields...)
	if stringField(fields, "encoding") == encodingBase64 {
		if b, err := base64.StdEncoding.DecodeString(data); err == nil {
			r.Data = b
			return r
		}
	}
	if data != "" {
		r.Data = []byte(data)
	}
	return r
}

func lookup(fields map[string]json.RawMessage, names ...string) (json.RawMessage, bool) {
	for _, name := range names {
		if v, ok := fields[name]; ok && string(v) != "null" {
			return v, true
		}
	}
	return nil, false
}

func stringField(fields map[string]json.RawMessage, names ...string) string {
	v, ok := lookup(fields, names...)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	return s
}

// intField accepts a JSON number or a numeric string.
func intField(fields map[string]json.RawMessage, names ...string) int {
	v, ok := lookup(fields, names...)
	if !ok {
		return 0
	}
	var n int
	if err := json.Unmarshal(v, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return 0
}
