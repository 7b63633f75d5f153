package datakit

import (
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// plain flattens BSON specific values into values every format can carry:
// ObjectIDs become hex strings, dates become time.Time, decimals become
// strings. Documents stay ordered bson.D and sequences become []any.
func plain(v any) any {
	switch t := v.(type) {
	case nil, string, bool, int, int32, int64, float64, time.Time, []byte:
		return t
	case bson.D:
		out := make(bson.D, 0, len(t))
		for _, e := range t {
			out = append(out, bson.E{Key: e.Key, Value: plain(e.Value)})
		}
		return out
	case bson.M:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(bson.D, 0, len(t))
		for _, k := range keys {
			out = append(out, bson.E{Key: k, Value: plain(t[k])})
		}
		return out
	case bson.A:
		return plainSlice(t)
	case []bson.D:
		out := make([]any, 0, len(t))
		for _, d := range t {
			out = append(out, plain(d))
		}
		return out
	case []string:
		out := make([]any, 0, len(t))
		for _, s := range t {
			out = append(out, s)
		}
		return out
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.Timestamp:
		return bson.D{{Key: "t", Value: int64(t.T)}, {Key: "i", Value: int64(t.I)}}
	case primitive.Decimal128:
		return t.String()
	case primitive.Binary:
		return t.Data
	case primitive.Regex:
		return fmt.Sprintf("/%s/%s", t.Pattern, t.Options)
	case primitive.Symbol:
		return string(t)
	case primitive.JavaScript:
		return string(t)
	case primitive.Null, primitive.Undefined:
		return nil
	case primitive.MinKey:
		return "MinKey"
	case primitive.MaxKey:
		return "MaxKey"
	case []any:
		return plainSlice(t)
	}
	return fmt.Sprint(v)
}

func plainSlice(items []any) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, plain(item))
	}
	return out
}
