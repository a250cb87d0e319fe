package log

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// maxTraceArray bounds decoded arrays. The largest array of an event is the
// acknowledgement list of one publish request.
const maxTraceArray = 1 << 16

// A trace file is a plain sequence of CBOR items, one per Event.
var codec = newCodec()

type traceCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func newCodec() traceCodec {
	enc, err := cbor.EncOptions{
		Sort:          cbor.SortCoreDeterministic,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("trace: cbor encode mode: %v", err))
	}
	dec, err := cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		MaxArrayElements: maxTraceArray,
		IndefLength:      cbor.IndefLengthAllowed,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("trace: cbor decode mode: %v", err))
	}
	return traceCodec{enc: enc, dec: dec}
}

// MarshalEvent returns the trace encoding of event.
func MarshalEvent(event Event) ([]byte, error) {
	return codec.enc.Marshal(event)
}

// UnmarshalEvent decodes one trace item.
func UnmarshalEvent(data []byte) (Event, error) {
	var event Event
	err := codec.dec.Unmarshal(data, &event)
	return event, err
}

func newEncoder(w io.Writer) *cbor.Encoder { return codec.enc.NewEncoder(w) }
func newDecoder(r io.Reader) *cbor.Decoder { return codec.dec.NewDecoder(r) }
