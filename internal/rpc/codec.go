// Package rpc carries Connect calls whose messages are google.protobuf.Struct
// values. Requests are read through Args and responses are built as Object
// maps, so the services speak plain JSON objects on the Connect JSON codec
// and Struct on the binary one.
package rpc

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/structpb"
)

// Args reads typed fields from a request or response message.
type Args struct {
	fields map[string]*structpb.Value
}

// NewArgs wraps msg. A nil message reads as empty.
func NewArgs(msg *structpb.Struct) Args {
	return Args{fields: msg.GetFields()}
}

// Has reports whether key is present and not null.
func (a Args) Has(key string) bool {
	v, ok := a.fields[key]
	if !ok {
		return false
	}
	_, null := v.GetKind().(*structpb.Value_NullValue)
	return !null
}

// String returns the string at key, or "" when absent.
func (a Args) String(key string) string {
	return a.fields[key].GetStringValue()
}

// Bool returns the bool at key, or false when absent.
func (a Args) Bool(key string) bool {
	return a.fields[key].GetBoolValue()
}

// Strings returns the list of strings at key.
func (a Args) Strings(key string) ([]string, error) {
	if !a.Has(key) {
		return nil, nil
	}
	list, ok := a.fields[key].GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, fmt.Errorf("field %q: expected a list", key)
	}
	out := make([]string, 0, len(list.ListValue.GetValues()))
	for i, v := range list.ListValue.GetValues() {
		s, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("field %q[%d]: expected a string", key, i)
		}
		out = append(out, s.StringValue)
	}
	return out, nil
}

// Int64 returns the integral number at key, or 0 when absent.
func (a Args) Int64(key string) (int64, error) {
	if !a.Has(key) {
		return 0, nil
	}
	return toInt(key, a.fields[key])
}

// Decimal returns the amount at key. Amounts are sent as decimal strings;
// plain JSON numbers are accepted too.
func (a Args) Decimal(key string) (decimal.Decimal, error) {
	if !a.Has(key) {
		return decimal.Zero, fmt.Errorf("field %q is required", key)
	}
	switch kind := a.fields[key].GetKind().(type) {
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(kind.StringValue)
		if err != nil {
			return decimal.Zero, fmt.Errorf("field %q: %w", key, err)
		}
		return d, nil
	case *structpb.Value_NumberValue:
		if math.IsNaN(kind.NumberValue) || math.IsInf(kind.NumberValue, 0) {
			return decimal.Zero, fmt.Errorf("field %q: not a finite number", key)
		}
		return decimal.NewFromFloat(kind.NumberValue), nil
	default:
		return decimal.Zero, fmt.Errorf("field %q: expected a decimal string", key)
	}
}

// IntMap returns the object at key as a map of integers, as used for
// percentage splits.
func (a Args) IntMap(key string) (map[string]int, error) {
	if !a.Has(key) {
		return nil, nil
	}
	obj, ok := a.fields[key].GetKind().(*structpb.Value_StructValue)
	if !ok {
		return nil, fmt.Errorf("field %q: expected an object", key)
	}
	out := make(map[string]int, len(obj.StructValue.GetFields()))
	for k, v := range obj.StructValue.GetFields() {
		n, err := toInt(key+"."+k, v)
		if err != nil {
			return nil, err
		}
		// int may be 32 bits wide.
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("field %q: %d is out of range", key+"."+k, n)
		}
		out[k] = int(n)
	}
	return out, nil
}

// Object returns the nested object at key.
func (a Args) Object(key string) Args {
	return Args{fields: a.fields[key].GetStructValue().GetFields()}
}

// Objects returns the list of nested objects at key, skipping other values.
func (a Args) Objects(key string) []Args {
	values := a.fields[key].GetListValue().GetValues()
	out := make([]Args, 0, len(values))
	for _, v := range values {
		if s := v.GetStructValue(); s != nil {
			out = append(out, Args{fields: s.GetFields()})
		}
	}
	return out
}

// Keys lists the field names in order.
func (a Args) Keys() []string {
	keys := make([]string, 0, len(a.fields))
	for k := range a.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toInt(key string, v *structpb.Value) (int64, error) {
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("field %q: expected a number", key)
	}
	f := n.NumberValue
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("field %q: expected an integer, got %v", key, f)
	}
	return int64(f), nil
}

// Object is a response message under construction.
type Object map[string]any

// Struct converts o into a protobuf Struct.
func (o Object) Struct() (*structpb.Struct, error) {
	fields := make(map[string]*structpb.Value, len(o))
	for k, v := range o {
		value, err := toValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		fields[k] = value
	}
	return &structpb.Struct{Fields: fields}, nil
}

func toValue(v any) (*structpb.Value, error) {
	switch v := v.(type) {
	case nil:
		return structpb.NewNullValue(), nil
	case *structpb.Value:
		return v, nil
	case string:
		return structpb.NewStringValue(v), nil
	case bool:
		return structpb.NewBoolValue(v), nil
	case int:
		return structpb.NewNumberValue(float64(v)), nil
	case int32:
		return structpb.NewNumberValue(float64(v)), nil
	case int64:
		return structpb.NewNumberValue(float64(v)), nil
	case float64:
		return structpb.NewNumberValue(v), nil
	case decimal.Decimal:
		return structpb.NewStringValue(v.String()), nil
	case []string:
		values := make([]*structpb.Value, len(v))
		for i, s := range v {
			values[i] = structpb.NewStringValue(s)
		}
		return structpb.NewListValue(&structpb.ListValue{Values: values}), nil
	case []Object:
		values := make([]*structpb.Value, len(v))
		for i, o := range v {
			s, err := o.Struct()
			if err != nil {
				return nil, err
			}
			values[i] = structpb.NewStructValue(s)
		}
		return structpb.NewListValue(&structpb.ListValue{Values: values}), nil
	case Object:
		s, err := v.Struct()
		if err != nil {
			return nil, err
		}
		return structpb.NewStructValue(s), nil
	case map[string]int:
		fields := make(map[string]*structpb.Value, len(v))
		for k, n := range v {
			fields[k] = structpb.NewNumberValue(float64(n))
		}
		return structpb.NewStructValue(&structpb.Struct{Fields: fields}), nil
	case map[string]decimal.Decimal:
		fields := make(map[string]*structpb.Value, len(v))
		for k, d := range v {
			fields[k] = structpb.NewStringValue(d.String())
		}
		return structpb.NewStructValue(&structpb.Struct{Fields: fields}), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}
