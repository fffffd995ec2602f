package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
)

// RawSite is an untrusted site record as decoded from JSON. Values are kept
// raw so an update patch can be overlaid onto an existing record before the
// result is parsed.
type RawSite map[string]json.RawMessage

// ParseDataset decodes and normalizes a serialized dataset. Only syntactically
// invalid JSON is rejected; any well-formed document normalizes to a Dataset.
func ParseDataset(data []byte) (Dataset, error) {
	v, err := decodeValue(data)
	if err != nil {
		return Dataset{}, &ParseError{Err: err}
	}
	return normalizeDatasetValue(v), nil
}

// ParseRawSite decodes a JSON object into a RawSite.
func ParseRawSite(data []byte) (RawSite, error) {
	var raw RawSite
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Err: err}
	}
	if raw == nil {
		return nil, &ParseError{Err: errors.New("site must be a JSON object")}
	}
	return raw, nil
}

// ParseSite normalizes a raw record. Missing text fields become empty
// strings, websites always becomes a slice and an absent or invalid number
// becomes zero.
func ParseSite(raw RawSite) Site {
	obj := make(map[string]any, len(raw))
	for k, msg := range raw {
		v, err := decodeValue(msg)
		if err != nil {
			continue
		}
		obj[k] = v
	}
	return normalizeSiteValue(obj)
}

// ParseNumber coerces a raw number value. ok is false when the value is
// absent, not integral or zero.
func ParseNumber(msg json.RawMessage) (int, bool) {
	v, err := decodeValue(msg)
	if err != nil {
		return 0, false
	}
	n := numberValue(v)
	return n, n != 0
}

// NormalizeSite returns s with every slice field defined.
func NormalizeSite(s Site) Site {
	out := s.Clone()
	if out.Websites == nil {
		out.Websites = []string{}
	}
	return out
}

// NormalizeDataset returns a deep copy of d with every slice field defined.
func NormalizeDataset(d Dataset) Dataset {
	out := Dataset{Regions: make([]Region, len(d.Regions))}
	for i, r := range d.Regions {
		nr := Region{Region: r.Region, Sites: make([]Site, len(r.Sites))}
		for j, s := range r.Sites {
			nr.Sites[j] = NormalizeSite(s)
		}
		out.Regions[i] = nr
	}
	return out
}

// Raw converts a site back to its raw form.
func (s Site) Raw() RawSite {
	data, err := json.Marshal(NormalizeSite(s))
	if err != nil {
		return RawSite{}
	}
	var raw RawSite
	if err := json.Unmarshal(data, &raw); err != nil {
		return RawSite{}
	}
	return raw
}

// Overlay returns a copy of base with every key of patch replacing the
// corresponding key of base.
func Overlay(base, patch RawSite) RawSite {
	out := make(RawSite, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// EncodeDataset serializes a dataset. When pretty is set the output is
// indented with two spaces. HTML characters are not escaped and no trailing
// newline is written.
func EncodeDataset(d Dataset, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(NormalizeDataset(d)); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func decodeValue(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid character after top-level value")
	}
	return v, nil
}

func normalizeDatasetValue(v any) Dataset {
	obj, _ := v.(map[string]any)
	items, _ := obj["regions"].([]any)
	d := Dataset{Regions: make([]Region, 0, len(items))}
	for _, item := range items {
		d.Regions = append(d.Regions, normalizeRegionValue(item))
	}
	return d
}

func normalizeRegionValue(v any) Region {
	obj, _ := v.(map[string]any)
	items, _ := obj["sites"].([]any)
	r := Region{Region: textValue(obj["region"]), Sites: make([]Site, 0, len(items))}
	for _, item := range items {
		r.Sites = append(r.Sites, normalizeSiteValue(item))
	}
	return r
}

func normalizeSiteValue(v any) Site {
	obj, _ := v.(map[string]any)
	return Site{
		Number:      numberValue(obj["number"]),
		Name:        textValue(obj["name"]),
		Address:     textValue(obj["address"]),
		City:        textValue(obj["city"]),
		State:       textValue(obj["state"]),
		Zip:         textValue(obj["zip"]),
		Phone:       textValue(obj["phone"]),
		Hours:       textValue(obj["hours"]),
		Type:        textValue(obj["type"]),
		Description: textValue(obj["description"]),
		Notes:       textValue(obj["notes"]),
		Websites:    websitesValue(obj["websites"]),
	}
}

func textValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return formatNumber(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func formatNumber(n json.Number) string {
	f, err := n.Float64()
	if err != nil || math.IsInf(f, 0) {
		return n.String()
	}
	if math.Abs(f) >= 1e21 {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func websitesValue(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, textValue(item))
		}
		return out
	case string:
		if t == "" {
			return []string{}
		}
	case json.Number:
		if f, err := t.Float64(); err == nil && f == 0 {
			return []string{}
		}
	case bool:
		if !t {
			return []string{}
		}
	case nil:
		return []string{}
	}
	return []string{textValue(v)}
}

func numberValue(v any) int {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	default:
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, strconv.IntSize); err == nil {
		return int(n)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f < math.MinInt || f >= math.MaxInt {
		return 0
	}
	return int(f)
}
