package datakit

import (
	"math"
	"reflect"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"go.mongodb.org/mongo-driver/bson"
)

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.EncOptions{
		Sort: cbor.SortCanonical,
		Time: cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(err)
	}
	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// CBOR maps are unordered: documents are written as maps and read back with
// their keys sorted.
func marshalCBOR(v any) ([]byte, error) {
	return cborEnc.Marshal(toCBOR(plain(v)))
}

func toCBOR(v any) any {
	switch t := v.(type) {
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = toCBOR(e.Value)
		}
		return m
	case []any:
		out := make([]any, 0, len(t))
		for _, item := range t {
			out = append(out, toCBOR(item))
		}
		return out
	}
	return v
}

func unmarshalCBOR(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	var v any
	if err := cborDec.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return fromCBOR(v), nil
}

func fromCBOR(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		doc := make(bson.D, 0, len(t))
		for _, k := range keys {
			doc = append(doc, bson.E{Key: k, Value: fromCBOR(t[k])})
		}
		return doc
	case []any:
		seq := make(bson.A, 0, len(t))
		for _, item := range t {
			seq = append(seq, fromCBOR(item))
		}
		return seq
	case uint64:
		if t <= math.MaxInt64 {
			return int64(t)
		}
		return float64(t)
	}
	return v
}
