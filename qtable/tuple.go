package qtable

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

var (
	// ErrNotSequence is returned when a state or action is not a slice or an array
	ErrNotSequence = errors.New("value is not a sequence")
	// ErrUnsupportedElement is returned for elements which are not primitives
	ErrUnsupportedElement = errors.New("unsupported tuple element")
	// ErrMalformedTuple is returned when decoding invalid tuple bytes
	ErrMalformedTuple = errors.New("malformed tuple encoding")
)

const (
	tagInt    byte = 'i'
	tagFloat  byte = 'f'
	tagString byte = 's'
	// not written anymore, bools are stored as ints
	tagBool   byte = 'b'
)

var jsonNumberType = reflect.TypeOf(json.Number(""))

// Tuple is the normalized key of a state or an action: an immutable ordered
// sequence of primitive elements. Tuples built from sequences holding the same
// element values are equal, irrespective of the container type, which makes
// Tuple usable as a map key.
//
// Numbers are keyed by value: integral floats are stored as int64 and bools as
// 0 or 1, so Of(1) == Of(1.0) == Of(true). Other floats are stored as float64.
type Tuple struct {
	enc string
}

// NewTuple normalizes a slice or an array of primitives into a Tuple. A string
// is the sequence of its characters, NewTuple("ab") == Of("a", "b").
func NewTuple(seq interface{}) (Tuple, error) {
	if t, ok := seq.(Tuple); ok {
		return t, nil
	}
	if seq == nil {
		return Tuple{}, fmt.Errorf("%w: nil", ErrNotSequence)
	}
	v := reflect.ValueOf(seq)
	if v.Kind() == reflect.String && v.Type() != jsonNumberType {
		return runeTuple(v.String()), nil
	}
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return Tuple{}, fmt.Errorf("%w: %T", ErrNotSequence, seq)
	}
	buf := make([]byte, 0, v.Len()*9)
	for i := 0; i < v.Len(); i++ {
		var err error
		buf, err = appendElement(buf, v.Index(i))
		if err != nil {
			return Tuple{}, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return Tuple{enc: string(buf)}, nil
}

func runeTuple(s string) Tuple {
	buf := make([]byte, 0, len(s)*3)
	for _, r := range s {
		buf = appendString(buf, string(r))
	}
	return Tuple{enc: string(buf)}
}

// Of builds a Tuple from the given elements
func Of(elems ...interface{}) (Tuple, error) {
	return NewTuple(elems)
}

// MustTuple is like NewTuple but panics on error
func MustTuple(seq interface{}) Tuple {
	t, err := NewTuple(seq)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTuple reads back the output of Tuple.Bytes
func ParseTuple(b []byte) (Tuple, error) {
	elems, err := decodeElements(string(b))
	if err != nil {
		return Tuple{}, err
	}
	return NewTuple(elems)
}

func appendElement(buf []byte, v reflect.Value) ([]byte, error) {
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return buf, fmt.Errorf("%w: nil", ErrUnsupportedElement)
		}
		v = v.Elem()
	}
	if v.Type() == jsonNumberType {
		n := json.Number(v.String())
		if i, err := n.Int64(); err == nil {
			return appendInt(buf, i), nil
		}
		f, err := n.Float64()
		if err != nil {
			return buf, fmt.Errorf("%w: number %s", ErrUnsupportedElement, n)
		}
		return appendFloat(buf, f), nil
	}

	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return appendInt(buf, v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := v.Uint()
		if u > math.MaxInt64 {
			return buf, fmt.Errorf("%w: %d overflows int64", ErrUnsupportedElement, u)
		}
		return appendInt(buf, int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return appendFloat(buf, v.Float()), nil
	case reflect.String:
		return appendString(buf, v.String()), nil
	case reflect.Bool:
		if v.Bool() {
			return appendInt(buf, 1), nil
		}
		return appendInt(buf, 0), nil
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return appendString(buf, string(v.Bytes())), nil
		}
	}
	return buf, fmt.Errorf("%w: %s", ErrUnsupportedElement, v.Type())
}

func appendInt(buf []byte, i int64) []byte {
	return appendUint64(append(buf, tagInt), uint64(i))
}

// appendFloat stores integral floats in the int64 range as ints. -0 becomes 0.
func appendFloat(buf []byte, f float64) []byte {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return appendInt(buf, int64(f))
	}
	return appendUint64(append(buf, tagFloat), math.Float64bits(f))
}

func appendUint64(buf []byte, u uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], u)
	return append(buf, b[:]...)
}

func appendString(buf []byte, s string) []byte {
	var l [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(l[:], uint64(len(s)))
	buf = append(buf, tagString)
	buf = append(buf, l[:n]...)
	return append(buf, s...)
}

func decodeElements(enc string) ([]interface{}, error) {
	elems := make([]interface{}, 0)
	for i := 0; i < len(enc); {
		tag := enc[i]
		i++
		switch tag {
		case tagInt, tagFloat:
			if len(enc)-i < 8 {
				return nil, fmt.Errorf("%w: truncated number at %d", ErrMalformedTuple, i)
			}
			bits := binary.BigEndian.Uint64([]byte(enc[i : i+8]))
			i += 8
			if tag == tagInt {
				elems = append(elems, int64(bits))
			} else {
				elems = append(elems, math.Float64frombits(bits))
			}
		case tagBool:
			if i >= len(enc) || enc[i] > 1 {
				return nil, fmt.Errorf("%w: bad bool at %d", ErrMalformedTuple, i)
			}
			elems = append(elems, enc[i] == 1)
			i++
		case tagString:
			l, n := binary.Uvarint([]byte(enc[i:]))
			if n <= 0 {
				return nil, fmt.Errorf("%w: bad string length at %d", ErrMalformedTuple, i)
			}
			i += n
			if uint64(len(enc)-i) < l {
				return nil, fmt.Errorf("%w: truncated string at %d", ErrMalformedTuple, i)
			}
			elems = append(elems, enc[i:i+int(l)])
			i += int(l)
		default:
			return nil, fmt.Errorf("%w: unknown tag %q", ErrMalformedTuple, tag)
		}
	}
	return elems, nil
}

// Elements returns the normalized elements. Each one is an int64, a float64
// or a string.
func (t Tuple) Elements() []interface{} {
	elems, _ := decodeElements(t.enc)
	return elems
}

// Len returns the number of elements
func (t Tuple) Len() int {
	return len(t.Elements())
}

// Bytes returns the tagged binary encoding of the tuple
func (t Tuple) Bytes() []byte {
	return []byte(t.enc)
}

// Less orders tuples by their encoding
func (t Tuple) Less(other Tuple) bool {
	return t.enc < other.enc
}

func (t Tuple) String() string {
	elems := t.Elements()
	parts := make([]string, len(elems))
	for i, e := range elems {
		switch v := e.(type) {
		case int64:
			parts[i] = strconv.FormatInt(v, 10)
		case float64:
			parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
		case string:
			parts[i] = strconv.Quote(v)
		}
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// MarshalJSON encodes the tuple as a JSON array. Non-finite floats are
// encoded as strings, see Float.
func (t Tuple) MarshalJSON() ([]byte, error) {
	elems := t.Elements()
	for i, e := range elems {
		if f, ok := e.(float64); ok {
			elems[i] = Float(f)
		}
	}
	return json.Marshal(elems)
}

// UnmarshalJSON decodes a JSON array of primitives or a string. Integral
// numbers, 1.0 included, are decoded as integers.
func (t *Tuple) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var seq interface{}
	if err := dec.Decode(&seq); err != nil {
		return err
	}
	if seq == nil {
		seq = []interface{}{}
	}
	tuple, err := NewTuple(seq)
	if err != nil {
		return err
	}
	*t = tuple
	return nil
}
