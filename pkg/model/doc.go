package model

import (
	"strings"
)

type Document struct {
	ID       string                 `json:"_id,omitempty"`
	Rev      string                 `json:"_rev,omitempty"`
	Deleted  bool                   `json:"_deleted,omitempty"`
	LocalSeq uint64                 `json:"_local_seq,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Key      interface{}            `json:"key,omitempty"`
	Value    interface{}            `json:"value,omitempty"`
}

func (doc Document) Language() string {
	v, ok := doc.Data["language"].(string)
	if ok {
		return v
	}
	return "" // default
}

func (doc Document) IsDesignDoc() bool {
	return strings.HasPrefix(doc.ID, "_design/")
}

func (doc Document) IsLocalDoc() bool {
	return strings.HasPrefix(doc.ID, "_local/")
}

// View returns the document fields as passed to a map function,
// with the document id and revision merged in.
func (doc Document) View() map[string]interface{} {
	view := make(map[string]interface{}, len(doc.Data)+2)
	for k, v := range doc.Data {
		view[k] = v
	}
	if doc.ID != "" {
		view["_id"] = doc.ID
	}
	if doc.Rev != "" {
		view["_rev"] = doc.Rev
	}
	return view
}
