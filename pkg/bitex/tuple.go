package bitex

import (
	"bytes"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

var jsonNull = []byte("null")

// splitArray splits a JSON array into its raw elements. Each element keeps
// its literal bytes, so a null element comes back as "null".
func splitArray(target string, data []byte) ([]jsoniter.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, decodeErr(target, "expected JSON array", nil)
	}
	if !json.Valid(trimmed) {
		return nil, decodeErr(target, "malformed array", nil)
	}

	iter := json.BorrowIterator(trimmed)
	defer json.ReturnIterator(iter)

	var elems []jsoniter.RawMessage
	iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
		raw := it.SkipAndReturnBytes()
		elems = append(elems, append(jsoniter.RawMessage(nil), raw...))
		return it.Error == nil
	})
	if iter.Error != nil && iter.Error != io.EOF {
		return nil, decodeErr(target, "malformed array", iter.Error)
	}
	return elems, nil
}

// decodeTuple decodes a fixed-arity JSON array positionally into fields.
// Supported targets: *int64, *decimal.Decimal, *string and **string
// (null leaves the pointer nil).
func decodeTuple(target string, data []byte, fields ...any) error {
	elems, err := splitArray(target, data)
	if err != nil {
		return err
	}
	if len(elems) != len(fields) {
		return decodeErr(target, fmt.Sprintf("expected %d elements, got %d", len(fields), len(elems)), nil)
	}
	for i, raw := range elems {
		if err := decodeElement(raw, fields[i]); err != nil {
			return decodeErr(target, fmt.Sprintf("element %d", i), err)
		}
	}
	return nil
}

func decodeElement(raw jsoniter.RawMessage, field any) error {
	raw = bytes.TrimSpace(raw)
	isNull := bytes.Equal(raw, jsonNull)

	switch f := field.(type) {
	case *int64:
		if isNull {
			return fmt.Errorf("null where integer expected")
		}
		return json.Unmarshal(raw, f)
	case *decimal.Decimal:
		// decimal accepts null as zero; monetary fields must be present.
		if isNull {
			return fmt.Errorf("null where decimal expected")
		}
		return f.UnmarshalJSON(raw)
	case **string:
		if isNull {
			*f = nil
			return nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*f = &s
		return nil
	case *string:
		if isNull {
			return fmt.Errorf("null where string expected")
		}
		return json.Unmarshal(raw, f)
	default:
		return fmt.Errorf("unsupported tuple field %T", field)
	}
}
