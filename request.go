package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// SelfValidator is implemented by request types that validate themselves.
// Returning ValidationErrors produces a 422 envelope listing each field.
type SelfValidator interface {
	Validate() error
}

// Validator validates any request.
type Validator interface {
	Validate(req any) error
}

// decodeRequest creates a new Req value and populates it from r. Fields
// tagged path, query, or header are bound from the request; a field named
// Body receives the decoded body. A struct without either is decoded from
// the body as a whole.
func decodeRequest[Req any](r *http.Request, decoders bodyDecoders) (*Req, error) {
	req := new(Req)
	t := reflect.TypeFor[Req]()
	if t == reflect.TypeFor[Void]() {
		return req, nil
	}

	v := reflect.ValueOf(req).Elem()
	if t.Kind() != reflect.Struct {
		if err := decodeBody(r, decoders, req); err != nil {
			return nil, err
		}
		return req, nil
	}

	if err := bindParams(v, r); err != nil {
		return nil, err
	}

	switch {
	case hasBodyField(t):
		if err := decodeBody(r, decoders, v.FieldByName("Body").Addr().Interface()); err != nil {
			return nil, err
		}
	case !hasParamTags(t):
		if err := decodeBody(r, decoders, req); err != nil {
			return nil, err
		}
	}
	return req, nil
}

var paramTags = []string{"path", "query", "header"}

func hasParamTags(t reflect.Type) bool {
	for i := range t.NumField() {
		for _, tag := range paramTags {
			if t.Field(i).Tag.Get(tag) != "" {
				return true
			}
		}
	}
	return false
}

func hasBodyField(t reflect.Type) bool {
	f, ok := t.FieldByName("Body")
	return ok && f.IsExported()
}

// bindParams binds path, query, and header values to tagged fields. The
// default tag applies to query and header fields left empty.
func bindParams(v reflect.Value, r *http.Request) error {
	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() || f.Name == "Body" {
			continue
		}

		field := v.Field(i)

		if name := f.Tag.Get("path"); name != "" {
			if val := r.PathValue(name); val != "" {
				if err := setFieldValue(field, val); err != nil {
					return fmt.Errorf("%w: %s: %w", ErrBindPath, name, err)
				}
			}
		}

		if name := f.Tag.Get("query"); name != "" {
			val := r.URL.Query().Get(name)
			if val == "" {
				val = f.Tag.Get("default")
			}
			if val != "" {
				if err := setFieldValue(field, val); err != nil {
					return fmt.Errorf("%w: %s: %w", ErrBindQuery, name, err)
				}
			}
		}

		if name := f.Tag.Get("header"); name != "" {
			val := r.Header.Get(name)
			if val == "" {
				val = f.Tag.Get("default")
			}
			if val != "" {
				if err := setFieldValue(field, val); err != nil {
					return fmt.Errorf("%w: %s: %w", ErrBindHeader, name, err)
				}
			}
		}
	}
	return nil
}

// setFieldValue sets a reflect.Value from a string, supporting common types.
func setFieldValue(field reflect.Value, value string) error {
	if field.Type() == reflect.TypeFor[time.Duration]() {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(d))
		return nil
	}

	//exhaustive:ignore
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float64:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported type: %s", field.Type())
	}
	return nil
}

// Decoder decodes request bodies from one wire format.
type Decoder interface {
	ContentType() string
	Decode(r io.Reader, v any) error
}

type jsonDecoder struct{}

func (jsonDecoder) ContentType() string { return mediaJSON }

func (jsonDecoder) Decode(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}

type yamlDecoder struct{}

func (yamlDecoder) ContentType() string { return mediaYAML }

func (yamlDecoder) Decode(r io.Reader, v any) error {
	return yaml.NewDecoder(r).Decode(v)
}

// bodyDecoders maps a canonical media type to its decoder. A registered
// decoder replaces the built-in one for the same media type.
type bodyDecoders map[string]Decoder

func newBodyDecoders(extra []Decoder) bodyDecoders {
	d := bodyDecoders{
		mediaJSON: jsonDecoder{},
		mediaYAML: yamlDecoder{},
	}
	for _, dec := range extra {
		d[canonicalMedia(dec.ContentType())] = dec
	}
	return d
}

// lookup returns the decoder for a Content-Type header. A missing header
// reads as JSON.
func (d bodyDecoders) lookup(contentType string) (Decoder, bool) {
	if contentType == "" {
		return d[mediaJSON], true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, false
	}
	dec, ok := d[canonicalMedia(mediaType)]
	return dec, ok
}

// decodeBody decodes the request body into target using the decoder for
// its Content-Type. An unknown Content-Type is a 415; an empty body leaves
// target untouched.
func decodeBody(r *http.Request, decoders bodyDecoders, target any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}

	dec, ok := decoders.lookup(r.Header.Get("Content-Type"))
	if !ok {
		return Errorf(http.StatusUnsupportedMediaType, "unsupported content type %q", r.Header.Get("Content-Type"))
	}
	if err := dec.Decode(r.Body, target); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w", ErrBindBody, err)
	}
	return nil
}
