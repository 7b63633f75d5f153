package datakit

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// valueColumn is the header used for sequences of non-document values.
const valueColumn = "value"

var numberPattern = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?$`)

func marshalCSV(v any) ([]byte, error) {
	var rows []bson.D
	switch t := plain(v).(type) {
	case nil:
		return nil, nil
	case bson.D:
		rows = []bson.D{t}
	case []any:
		rows = make([]bson.D, 0, len(t))
		for _, item := range t {
			doc, ok := item.(bson.D)
			if !ok {
				doc = bson.D{{Key: valueColumn, Value: item}}
			}
			rows = append(rows, doc)
		}
	default:
		rows = []bson.D{{{Key: valueColumn, Value: t}}}
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var header []string
	seen := map[string]bool{}
	flat := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		cells := map[string]string{}
		keys, err := flatten("", row, cells)
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				header = append(header, k)
			}
		}
		flat = append(flat, cells)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	record := make([]string, len(header))
	for _, cells := range flat {
		for i, k := range header {
			record[i] = cells[k]
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// flatten writes the cells of doc into cells, nested documents under dotted
// keys, and returns the keys in document order.
func flatten(prefix string, doc bson.D, cells map[string]string) ([]string, error) {
	var keys []string
	for _, e := range doc {
		key := e.Key
		if prefix != "" {
			key = prefix + "." + e.Key
		}
		if sub, ok := e.Value.(bson.D); ok && len(sub) > 0 {
			subKeys, err := flatten(key, sub, cells)
			if err != nil {
				return nil, err
			}
			keys = append(keys, subKeys...)
			continue
		}
		cell, err := csvCell(e.Value)
		if err != nil {
			return nil, err
		}
		cells[key] = cell
		keys = append(keys, key)
	}
	return keys, nil
}

func csvCell(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int32:
		return strconv.FormatInt(int64(t), 10), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	case time.Time:
		return t.Format(time.RFC3339Nano), nil
	case []byte:
		return base64.StdEncoding.EncodeToString(t), nil
	}
	out, err := MarshalExtJSON(v, false, false)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// unmarshalCSV reads one document per row. An empty cell means the field is
// absent: rows of differently shaped documents share one header, so an empty
// string field does not survive a CSV round trip.
func unmarshalCSV(data []byte) (any, error) {
	r := csv.NewReader(bytes.NewReader(data))
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	docs := bson.A{}
	if len(records) == 0 {
		return docs, nil
	}
	header := records[0]
	for _, record := range records[1:] {
		doc := bson.D{}
		for i, key := range header {
			if i >= len(record) || record[i] == "" {
				continue
			}
			doc = setPath(doc, strings.Split(key, "."), parseCell(key, record[i]))
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// parseCell types a CSV cell. Identifiers always stay strings so the
// identifier normalizer sees them verbatim.
func parseCell(key, cell string) any {
	if key == "_id" {
		return cell
	}
	switch cell {
	case "true":
		return true
	case "false":
		return false
	}
	if numberPattern.MatchString(cell) {
		if i, err := strconv.ParseInt(cell, 10, 64); err == nil {
			if int64(int32(i)) == i {
				return int32(i)
			}
			return i
		}
		if f, err := strconv.ParseFloat(cell, 64); err == nil {
			return f
		}
	}
	if strings.HasPrefix(cell, "[") || strings.HasPrefix(cell, "{") {
		if v, err := UnmarshalExtJSON([]byte(cell)); err == nil {
			return v
		}
	}
	return cell
}

func setPath(doc bson.D, path []string, v any) bson.D {
	if len(path) == 1 {
		return append(doc, bson.E{Key: path[0], Value: v})
	}
	for i, e := range doc {
		if e.Key != path[0] {
			continue
		}
		if sub, ok := e.Value.(bson.D); ok {
			doc[i].Value = setPath(sub, path[1:], v)
			return doc
		}
	}
	return append(doc, bson.E{Key: path[0], Value: setPath(bson.D{}, path[1:], v)})
}
