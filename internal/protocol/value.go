package protocol

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/S2-group/swim-HTTP/internal/domain"
)

// Value is a typed JSON value. Each kind encodes directly to its JSON token
// type, so numbers are never quoted and text is always quoted.
type Value interface {
	appendJSON(dst []byte, field string) ([]byte, error)
}

// Int encodes as a JSON integer.
type Int int64

// Real encodes as a JSON number in plain decimal form, rounded to six
// significant digits.
type Real float64

// Text encodes as a JSON string.
type Text string

// Array encodes as a JSON array.
type Array []Value

// Raw is an already-encoded JSON document embedded as is.
type Raw []byte

// Field is one named member of an Object.
type Field struct {
	Name  string
	Value Value
}

// Object encodes as a JSON object with members in insertion order.
type Object []Field

// Set replaces the value of an existing member or appends a new one.
func (o *Object) Set(name string, v Value) {
	for i := range *o {
		if (*o)[i].Name == name {
			(*o)[i].Value = v
			return
		}
	}
	*o = append(*o, Field{Name: name, Value: v})
}

// Encode serializes v to a single JSON document.
func Encode(v Value) ([]byte, error) {
	if v == nil {
		return nil, &domain.ErrEncoding{Field: "$", Reason: "nil value"}
	}
	return v.appendJSON(make([]byte, 0, 256), "$")
}

func (v Int) appendJSON(dst []byte, _ string) ([]byte, error) {
	return strconv.AppendInt(dst, int64(v), 10), nil
}

func (v Real) appendJSON(dst []byte, field string) ([]byte, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return dst, &domain.ErrEncoding{Field: field, Reason: "non-finite number"}
	}
	return strconv.AppendFloat(dst, domain.RoundSignificant(f), 'f', -1, 64), nil
}

func (v Text) appendJSON(dst []byte, field string) ([]byte, error) {
	b, err := json.Marshal(string(v))
	if err != nil {
		return dst, &domain.ErrEncoding{Field: field, Reason: err.Error()}
	}
	return append(dst, b...), nil
}

func (v Array) appendJSON(dst []byte, field string) ([]byte, error) {
	dst = append(dst, '[')
	for i, elem := range v {
		if i > 0 {
			dst = append(dst, ',')
		}
		if elem == nil {
			dst = append(dst, "null"...)
			continue
		}
		var err error
		if dst, err = elem.appendJSON(dst, field+"["+strconv.Itoa(i)+"]"); err != nil {
			return dst, err
		}
	}
	return append(dst, ']'), nil
}

func (v Object) appendJSON(dst []byte, field string) ([]byte, error) {
	dst = append(dst, '{')
	for i, f := range v {
		if i > 0 {
			dst = append(dst, ',')
		}
		name, err := Text(f.Name).appendJSON(dst, field)
		if err != nil {
			return dst, err
		}
		dst = append(name, ':')
		if f.Value == nil {
			dst = append(dst, "null"...)
			continue
		}
		if dst, err = f.Value.appendJSON(dst, field+"."+f.Name); err != nil {
			return dst, err
		}
	}
	return append(dst, '}'), nil
}

func (v Raw) appendJSON(dst []byte, field string) ([]byte, error) {
	if !json.Valid(v) {
		return dst, &domain.ErrEncoding{Field: field, Reason: "invalid embedded document"}
	}
	return append(dst, v...), nil
}
