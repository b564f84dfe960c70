package wire

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/gautammanak1/taskmesh/core"
)

// Supported encoder formats.
const (
	FormatJSON = "json"
	FormatCBOR = "cbor"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("wire: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("wire: CBOR decoder initialization failed: " + err.Error())
	}
}

// MarshalCBOR encodes v with Core Deterministic Encoding.
func MarshalCBOR(v any) ([]byte, error) { return encMode.Marshal(v) }

// UnmarshalCBOR decodes CBOR data into v.
func UnmarshalCBOR(data []byte, v any) error { return decMode.Unmarshal(data, v) }

// NewCBORDecoder returns a decoder reading a CBOR sequence of records.
func NewCBORDecoder(r io.Reader) *cbor.Decoder { return decMode.NewDecoder(r) }

// Encoder writes task events to a stream.
type Encoder interface {
	Encode(ev core.Event) error
}

// EncoderFunc adapts a function to the Encoder interface.
type EncoderFunc func(ev core.Event) error

// Encode implements Encoder.
func (f EncoderFunc) Encode(ev core.Event) error { return f(ev) }

// NewJSONEncoder writes one JSON record per line.
func NewJSONEncoder(w io.Writer) Encoder {
	enc := json.NewEncoder(w)
	return EncoderFunc(func(ev core.Event) error {
		if err := enc.Encode(FromEvent(ev)); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
		return nil
	})
}

// NewCBOREncoder writes records as a CBOR sequence.
func NewCBOREncoder(w io.Writer) Encoder {
	enc := encMode.NewEncoder(w)
	return EncoderFunc(func(ev core.Event) error {
		if err := enc.Encode(FromEvent(ev)); err != nil {
			return fmt.Errorf("encode cbor record: %w", err)
		}
		return nil
	})
}

// NewEncoder returns the encoder for format.
func NewEncoder(format string, w io.Writer) (Encoder, error) {
	switch format {
	case FormatJSON:
		return NewJSONEncoder(w), nil
	case FormatCBOR:
		return NewCBOREncoder(w), nil
	default:
		return nil, fmt.Errorf("unknown wire format %q", format)
	}
}
