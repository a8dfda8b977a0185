package envelope

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	mediaJSON = "application/json"
	mediaYAML = "application/yaml"
)

// mediaAliases maps media types clients send to the one an encoder or
// decoder is registered under.
var mediaAliases = map[string]string{
	"application/x-yaml": mediaYAML,
	"text/yaml":          mediaYAML,
	"text/x-yaml":        mediaYAML,
	"text/json":          mediaJSON,
}

func canonicalMedia(mediaType string) string {
	if alias, ok := mediaAliases[mediaType]; ok {
		return alias
	}
	return mediaType
}

// Encoder writes envelopes in one wire format.
type Encoder interface {
	ContentType() string
	Encode(w io.Writer, env *Envelope) error
}

type jsonEncoder struct{}

func (jsonEncoder) ContentType() string { return mediaJSON }

func (jsonEncoder) Encode(w io.Writer, env *Envelope) error {
	return json.NewEncoder(w).Encode(env)
}

type yamlEncoder struct{}

func (yamlEncoder) ContentType() string { return mediaYAML }

func (yamlEncoder) Encode(w io.Writer, env *Envelope) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(env); err != nil {
		return err
	}
	return enc.Close()
}

// acceptRange is one media range of an Accept header.
type acceptRange struct {
	mediaType string
	q         float64
}

// parseAccept returns the ranges of an Accept header, most preferred
// first. Ranges with q=0 are refused by the client and left out; equal
// weights keep header order.
func parseAccept(header string) []acceptRange {
	var ranges []acceptRange
	for part := range strings.SplitSeq(header, ",") {
		mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		q := 1.0
		if qs, ok := params["q"]; ok {
			if parsed, err := strconv.ParseFloat(qs, 64); err == nil {
				q = parsed
			}
		}
		if q <= 0 {
			continue
		}
		ranges = append(ranges, acceptRange{mediaType: canonicalMedia(mediaType), q: q})
	}

	slices.SortStableFunc(ranges, func(a, b acceptRange) int {
		switch {
		case a.q > b.q:
			return -1
		case a.q < b.q:
			return 1
		}
		return 0
	})
	return ranges
}

// responseEncoders picks the encoder for each response. JSON is always
// first and serves wildcards and requests that state no preference.
type responseEncoders struct {
	encoders  []Encoder
	forceJSON bool
	strict    bool
}

func newResponseEncoders(cfg Config, strict bool, extra []Encoder) *responseEncoders {
	encoders := append([]Encoder{jsonEncoder{}, yamlEncoder{}}, extra...)
	return &responseEncoders{
		encoders:  encoders,
		forceJSON: cfg.ForceJSONResponseHeader,
		strict:    strict,
	}
}

func (re *responseEncoders) fallback() Encoder { return re.encoders[0] }

// forRequest returns the encoder for r. With forced JSON, a nil request or
// no Accept header the answer is JSON. An Accept header nothing satisfies
// falls back to JSON, or fails with ErrNotAcceptable in strict mode.
func (re *responseEncoders) forRequest(r *http.Request) (Encoder, error) {
	if re.forceJSON || r == nil {
		return re.fallback(), nil
	}
	accept := r.Header.Get("Accept")
	if accept == "" {
		return re.fallback(), nil
	}

	for _, ar := range parseAccept(accept) {
		if enc := re.match(ar.mediaType); enc != nil {
			return enc, nil
		}
	}
	if re.strict {
		return nil, ErrNotAcceptable
	}
	return re.fallback(), nil
}

func (re *responseEncoders) match(mediaType string) Encoder {
	if mediaType == "*/*" || mediaType == "application/*" {
		return re.fallback()
	}
	for _, enc := range re.encoders {
		if enc.ContentType() == mediaType {
			return enc
		}
	}
	return nil
}
