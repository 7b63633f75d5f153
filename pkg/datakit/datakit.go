// Package datakit reads and writes documents in the file formats supported by
// mongokit. The format is chosen by the extension of the file name; the "-"
// designator selects the standard streams and JSON.
//
// YAML, CSV and CBOR carry plain values only: ObjectIDs become hex strings,
// dates become timestamps. CSV cannot tell an empty string from a missing
// field and drops empty cells on input.
package datakit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// StdStream is the designator for standard input or standard output.
const StdStream = "-"

// Error is a constant error returned by the codec.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrUnknownFormat is returned for file names with an unsupported extension.
	ErrUnknownFormat = Error("unknown file format")
	// ErrInputShape is returned when the input holds a document where a
	// sequence of documents is expected, or the other way round.
	ErrInputShape = Error("unexpected input shape")
	// ErrEmptyInput is returned when there is nothing to decode.
	ErrEmptyInput = Error("empty input")
)

// Format identifies a serialization format.
type Format string

const (
	FormatJSON    Format = "json"
	FormatExtJSON Format = "ejson"
	FormatYAML    Format = "yaml"
	FormatCSV     Format = "csv"
	FormatCBOR    Format = "cbor"
)

// FormatFor returns the format selected by a designator.
func FormatFor(designator string) (Format, error) {
	if designator == "" || designator == StdStream {
		return FormatJSON, nil
	}
	ext := strings.ToLower(filepath.Ext(designator))
	switch ext {
	case ".json":
		return FormatJSON, nil
	case ".ejson":
		return FormatExtJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".csv":
		return FormatCSV, nil
	case ".cbor":
		return FormatCBOR, nil
	}
	return "", fmt.Errorf("%w %q for %s", ErrUnknownFormat, ext, designator)
}

// Codec reads input and writes output for the operation handlers.
type Codec struct {
	Stdin  io.Reader
	Stdout io.Writer

	// Highlight, when set, post-processes JSON written to Stdout
	// (terminal colorization).
	Highlight func([]byte) []byte
}

// New returns a codec bound to the process standard streams.
func New() *Codec {
	return &Codec{Stdin: os.Stdin, Stdout: os.Stdout}
}

// CheckOutput fails when designator names a file in an unsupported format,
// so commands can reject it before querying the database.
func (c *Codec) CheckOutput(designator string) error {
	_, err := FormatFor(designator)
	return err
}

// Read decodes the value held by designator. Documents are returned as
// bson.D, sequences as bson.A.
func (c *Codec) Read(designator string) (any, error) {
	format, err := FormatFor(designator)
	if err != nil {
		return nil, err
	}

	var data []byte
	if designator == "" || designator == StdStream {
		data, err = io.ReadAll(c.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read standard input: %w", err)
		}
	} else {
		// #nosec G304 -- reading the file named on the command line
		data, err = os.ReadFile(designator)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", designator, err)
		}
	}

	v, err := Decode(format, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s input: %w", format, err)
	}
	return v, nil
}

// ReadDocument reads a single document. A CSV input must hold exactly one row.
func (c *Codec) ReadDocument(designator string) (bson.D, error) {
	v, err := c.Read(designator)
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case bson.D:
		return t, nil
	case bson.A:
		if format, _ := FormatFor(designator); format == FormatCSV && len(t) == 1 {
			if doc, ok := t[0].(bson.D); ok {
				return doc, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: expected a single document, got %s", ErrInputShape, describe(v))
}

// ReadDocuments reads a sequence of documents.
func (c *Codec) ReadDocuments(designator string) ([]bson.D, error) {
	v, err := c.Read(designator)
	if err != nil {
		return nil, err
	}
	seq, ok := v.(bson.A)
	if !ok {
		return nil, fmt.Errorf("%w: expected a sequence of documents, got %s", ErrInputShape, describe(v))
	}
	docs := make([]bson.D, 0, len(seq))
	for i, item := range seq {
		doc, ok := item.(bson.D)
		if !ok {
			return nil, fmt.Errorf("%w: item %d is %s, not a document", ErrInputShape, i, describe(item))
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Write encodes v to designator.
func (c *Codec) Write(designator string, v any) error {
	format, err := FormatFor(designator)
	if err != nil {
		return err
	}

	data, err := Encode(format, v)
	if err != nil {
		return fmt.Errorf("failed to encode %s output: %w", format, err)
	}

	if designator == "" || designator == StdStream {
		if c.Highlight != nil {
			data = c.Highlight(data)
		}
		if _, err := c.Stdout.Write(data); err != nil {
			return fmt.Errorf("failed to write standard output: %w", err)
		}
		return nil
	}

	// #nosec G306 -- exported data files are meant to be shared
	if err := os.WriteFile(designator, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", designator, err)
	}
	return nil
}

// Encode serializes v in the given format.
func Encode(format Format, v any) ([]byte, error) {
	switch format {
	case FormatJSON:
		return MarshalExtJSON(v, false, true)
	case FormatExtJSON:
		return MarshalExtJSON(v, true, true)
	case FormatYAML:
		return marshalYAML(v)
	case FormatCSV:
		return marshalCSV(v)
	case FormatCBOR:
		return marshalCBOR(v)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownFormat, format)
}

// Decode parses data in the given format.
func Decode(format Format, data []byte) (any, error) {
	if len(strings.TrimSpace(string(data))) == 0 && format != FormatCBOR {
		return nil, ErrEmptyInput
	}
	switch format {
	case FormatJSON, FormatExtJSON:
		return UnmarshalExtJSON(data)
	case FormatYAML:
		return unmarshalYAML(data)
	case FormatCSV:
		return unmarshalCSV(data)
	case FormatCBOR:
		return unmarshalCBOR(data)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownFormat, format)
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bson.D:
		return "a document"
	case bson.A:
		return "a sequence"
	}
	return fmt.Sprintf("a %T value", v)
}
