// Package dataset encodes normalized commands as training records.
//
// A record stream is either JSON lines or a CBOR sequence of canonically
// encoded records (RFC 8742), so identical inputs give identical bytes.
package dataset

import (
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/aledsdavies/cmdtree/pkgs/errors"
	"github.com/aledsdavies/cmdtree/pkgs/linear"
	"github.com/aledsdavies/cmdtree/pkgs/normalizer"
	"github.com/aledsdavies/cmdtree/pkgs/render"
	"github.com/aledsdavies/cmdtree/pkgs/tree"
)

// Formats
const (
	JSON = "json"
	CBOR = "cbor"
)

// Record is one normalized command
type Record struct {
	ID       string   `json:"id" cbor:"1,keyasint"`
	Command  string   `json:"command" cbor:"2,keyasint"`
	Symbols  []string `json:"symbols" cbor:"3,keyasint"`
	Rendered string   `json:"rendered" cbor:"4,keyasint"`
	// Partial marks trees left with unfolded operators
	Partial bool `json:"partial,omitempty" cbor:"5,keyasint,omitempty"`
}

// ID returns the hex blake2b-256 digest of a command
func ID(command string) string {
	sum := blake2b.Sum256([]byte(command))
	return hex.EncodeToString(sum[:])
}

// NewRecord builds the record of a normalized command. Symbols are padded
// to padTo when it is positive. Partial trees render loosely.
func NewRecord(res *normalizer.Result, padTo int) (*Record, error) {
	mode := render.Strict
	if res.Partial() {
		mode = render.Loose
	}
	rendered, err := render.Render(res.Tree, mode)
	if err != nil {
		return nil, err
	}

	symbols := linear.Linearize(res.Tree)
	if padTo > 0 {
		symbols = linear.Pad(symbols, padTo)
	}
	return &Record{
		ID:       ID(res.Command),
		Command:  res.Command,
		Symbols:  symbols,
		Rendered: rendered,
		Partial:  res.Partial(),
	}, nil
}

// Tree rebuilds the record's tree from its symbols
func (r *Record) Tree() (*tree.Node, error) {
	return linear.Delinearize(r.Symbols)
}

// Writer appends records to a stream
type Writer interface {
	Write(rec *Record) error
}

// Reader reads records back. Next returns io.EOF after the last record.
type Reader interface {
	Next() (*Record, error)
}

func checkFormat(format string) error {
	switch format {
	case JSON, CBOR:
		return nil
	}
	return errors.Newf(errors.ErrConfig, "unknown record format %q", format)
}

// NewWriter returns a record writer for format
func NewWriter(w io.Writer, format string) (Writer, error) {
	if err := checkFormat(format); err != nil {
		return nil, err
	}
	if format == JSON {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		return &jsonWriter{enc: enc}, nil
	}
	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("create CBOR encoder: %w", err)
	}
	return &cborWriter{enc: encMode.NewEncoder(w)}, nil
}

// NewReader returns a record reader for format
func NewReader(r io.Reader, format string) (Reader, error) {
	if err := checkFormat(format); err != nil {
		return nil, err
	}
	if format == JSON {
		return &jsonReader{dec: json.NewDecoder(r)}, nil
	}
	return &cborReader{dec: cbor.NewDecoder(r)}, nil
}

// ReadAll drains a reader
func ReadAll(r Reader) ([]*Record, error) {
	var out []*Record
	for {
		rec, err := r.Next()
		if stderrors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

type jsonWriter struct {
	enc *json.Encoder
}

func (w *jsonWriter) Write(rec *Record) error {
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("write JSON record: %w", err)
	}
	return nil
}

type cborWriter struct {
	enc *cbor.Encoder
}

func (w *cborWriter) Write(rec *Record) error {
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("write CBOR record: %w", err)
	}
	return nil
}

type jsonReader struct {
	dec *json.Decoder
}

func (r *jsonReader) Next() (*Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read JSON record: %w", err)
	}
	return &rec, nil
}

type cborReader struct {
	dec *cbor.Decoder
}

func (r *cborReader) Next() (*Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read CBOR record: %w", err)
	}
	return &rec, nil
}
