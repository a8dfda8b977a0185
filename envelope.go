package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"gopkg.in/yaml.v3"
)

// Default messages.
const (
	MessageSuccess = "Success"
	MessageError   = "Error"

	messageValidationFailed = "Validation Failed"
)

// Envelope is a built response. Success envelopes carry Key and Payload,
// error envelopes carry Errors; the two never mix.
type Envelope struct {
	// Status is the HTTP status written by Builder.Write.
	Status int

	// Message is rendered as data.message.
	Message string

	// Key is the payload field name. Empty for error envelopes.
	Key string

	// Payload is the JSON form of the success payload, always an object
	// or an array.
	Payload json.RawMessage

	// Meta is rendered as data.meta on success envelopes.
	Meta map[string]any

	// Errors is rendered as data.errors on error envelopes; nil renders
	// as null.
	Errors any

	// Headers are copied onto the response by Builder.Write.
	Headers http.Header

	unwrapped bool
}

// IsError reports whether e is an error envelope.
func (e *Envelope) IsError() bool { return e.Key == "" }

// MarshalJSON renders e with a fixed key order: response, data, then the
// payload key, meta, and message (or errors and message).
func (e *Envelope) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if !e.unwrapped {
		buf.WriteString(`{"response":{"data":`)
	}

	buf.WriteByte('{')
	if e.IsError() {
		if err := writeField(&buf, errorsKey, e.Errors); err != nil {
			return nil, err
		}
	} else {
		if err := writeField(&buf, e.Key, e.Payload); err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		meta := e.Meta
		if meta == nil {
			meta = map[string]any{}
		}
		if err := writeField(&buf, metaKey, meta); err != nil {
			return nil, err
		}
	}
	buf.WriteByte(',')
	if err := writeField(&buf, messageKey, e.Message); err != nil {
		return nil, err
	}
	buf.WriteByte('}')

	if !e.unwrapped {
		buf.WriteString(`}}`)
	}
	return buf.Bytes(), nil
}

func writeField(buf *bytes.Buffer, name string, v any) error {
	k, err := json.Marshal(name)
	if err != nil {
		return err
	}
	val, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(val)
	return nil
}

// Map returns the generic form of e, equal to decoding its JSON encoding
// into a map[string]any.
func (e *Envelope) Map() (map[string]any, error) {
	b, err := e.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarshalYAML renders the same document as MarshalJSON, key order
// included, in block style.
func (e *Envelope) MarshalYAML() (any, error) {
	b, err := e.MarshalJSON()
	if err != nil {
		return nil, err
	}

	// JSON is a YAML subset, so the node tree keeps every mapping in order.
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, errors.New("encode yaml: empty document")
	}

	root := doc.Content[0]
	blockStyle(root)
	return root, nil
}

// blockStyle clears the flow and quoting styles parsed from JSON. The
// encoder still quotes strings that would otherwise read as another type.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// Unwrapped reports whether the response/data layers are omitted.
func (e *Envelope) Unwrapped() bool { return e.unwrapped }
