package replication

import (
	"encoding/xml"
	"io"
	"strings"
)

// Trigger decides which host events start a replication.
// It is evaluated for every event the host delivers and has no side effects.
type Trigger struct {
	FormType   string       // host form type of the source document (e.g. "139")
	SourceKind DocumentKind // object type fetched when the trigger matches
}

// Match returns the source key of a successful "document added" event on the trigger form.
// Any other event yields ok == false.
func (t Trigger) Match(e FormDataEvent) (key string, ok bool) {
	if e.FormType != t.FormType {
		return "", false
	}
	if e.EventType != EventFormDataAdd || e.BeforeAction || !e.ActionSuccess {
		return "", false
	}
	key = ParseObjectKey(e.ObjectKey)
	if key == "" {
		return "", false
	}
	return key, true
}

type documentParams struct {
	XMLName  xml.Name `xml:"DocumentParams"`
	DocEntry string   `xml:"DocEntry"`
}

// ParseObjectKey extracts the document key from a host object key.
// The host reports keys either as plain text or wrapped in a DocumentParams XML envelope.
func ParseObjectKey(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "<") {
		return raw
	}
	var params documentParams
	dec := xml.NewDecoder(strings.NewReader(raw))
	// The host declares UTF-16 in the prolog while handing over already-decoded text.
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	if err := dec.Decode(&params); err != nil {
		return ""
	}
	return strings.TrimSpace(params.DocEntry)
}
