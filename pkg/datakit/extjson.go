package datakit

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// wrapKey names the field used to carry non-document values through the
// driver's Extended JSON codec, which only handles documents at top level.
const wrapKey = "v"

type wrapped struct {
	V json.RawMessage `json:"v"`
}

// MarshalExtJSON encodes any BSON value (document, sequence or scalar) as
// MongoDB Extended JSON, relaxed unless canonical is set.
func MarshalExtJSON(v any, canonical, indent bool) ([]byte, error) {
	out, err := bson.MarshalExtJSON(bson.D{{Key: wrapKey, Value: v}}, canonical, false)
	if err != nil {
		return nil, err
	}

	var w wrapped
	if err := json.Unmarshal(out, &w); err != nil {
		return nil, fmt.Errorf("failed to unwrap extended JSON: %w", err)
	}
	if !indent {
		return w.V, nil
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, w.V, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// UnmarshalExtJSON parses Extended JSON (canonical or relaxed, so plain JSON as
// well). Objects decode to bson.D and arrays to bson.A, keeping key order.
func UnmarshalExtJSON(data []byte) (any, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"` + wrapKey + `":`)
	buf.Write(bytes.TrimSpace(data))
	buf.WriteString("}")

	var doc bson.D
	if err := bson.UnmarshalExtJSON(buf.Bytes(), false, &doc); err != nil {
		return nil, err
	}
	if len(doc) != 1 {
		return nil, fmt.Errorf("expected a single JSON value, got %d", len(doc))
	}
	return doc[0].Value, nil
}
