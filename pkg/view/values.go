package view

import (
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// undefinedValue marks a dotted path that did not resolve. It is distinct from
// a present nil value, which renders as "null".
type undefinedValue struct{}

var undefined = undefinedValue{}

// lookupPath walks data key by key following a dotted path.
func lookupPath(path string, data map[string]interface{}) (interface{}, bool) {
	var current interface{} = data
	for _, key := range strings.Split(path, ".") {
		next, ok := child(current, key)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// resolve is lookupPath with the undefined sentinel folded in.
func resolve(path string, data map[string]interface{}) interface{} {
	if v, ok := lookupPath(path, data); ok {
		return v
	}
	return undefined
}

func child(v interface{}, key string) (interface{}, bool) {
	switch m := v.(type) {
	case nil:
		return nil, false
	case map[string]interface{}:
		val, ok := m[key]
		return val, ok
	case map[string]string:
		val, ok := m[key]
		return val, ok
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		val := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !val.IsValid() {
			return nil, false
		}
		return val.Interface(), true
	case reflect.Slice, reflect.Array:
		if key == "length" {
			return rv.Len(), true
		}
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= rv.Len() || strconv.Itoa(idx) != key {
			return nil, false
		}
		return rv.Index(idx).Interface(), true
	case reflect.Struct:
		return structField(rv, key)
	}
	return nil, false
}

func structField(rv reflect.Value, key string) (interface{}, bool) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag := f.Tag.Get("json"); tag != "" {
			if n := strings.Split(tag, ",")[0]; n != "" && n != "-" {
				name = n
			}
		}
		if name == key || f.Name == key {
			return rv.Field(i).Interface(), true
		}
	}
	return nil, false
}

// isSequence reports whether v is a slice or array (strings excluded).
func isSequence(v interface{}) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return false
	}
	k := reflect.ValueOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

func sequenceItems(v interface{}) []interface{} {
	if items, ok := v.([]interface{}); ok {
		return items
	}
	rv := reflect.ValueOf(v)
	items := make([]interface{}, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items
}

// toText converts a value the way string interpolation in the browser does.
func toText(v interface{}) string {
	switch val := v.(type) {
	case undefinedValue:
		return "undefined"
	case nil:
		return "null"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return formatNumber(val)
	case float32:
		return formatNumber(float64(val))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return cast.ToString(val)
	case []byte:
		return string(val)
	}

	if isSequence(v) {
		items := sequenceItems(v)
		parts := make([]string, len(items))
		for i, item := range items {
			if item == nil {
				continue
			}
			parts[i] = toText(item)
		}
		return strings.Join(parts, ",")
	}

	switch reflect.Indirect(reflect.ValueOf(v)).Kind() {
	case reflect.Map, reflect.Struct:
		return "[object Object]"
	}

	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return "[object Object]"
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs >= 1e21 || abs < 1e-6) {
		s := strconv.FormatFloat(f, 'g', -1, 64)
		// 1e-07 -> 1e-7
		s = strings.Replace(s, "e-0", "e-", 1)
		return strings.Replace(s, "e+0", "e+", 1)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func isTruthy(v interface{}) bool {
	switch val := v.(type) {
	case undefinedValue, nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	}
	if f, ok := numberOf(v); ok {
		return f != 0 && !math.IsNaN(f)
	}
	return true
}

func numberOf(v interface{}) (float64, bool) {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return cast.ToFloat64(v), true
	}
	return 0, false
}

// stringToNumber follows Number(string): blank is 0, garbage is NaN.
func stringToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if n, err := strconv.ParseInt(s[2:], 16, 64); err == nil {
			return float64(n)
		}
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

type kind int

const (
	kindUndefined kind = iota
	kindNull
	kindNumber
	kindString
	kindBool
	kindObject
)

func kindOf(v interface{}) kind {
	switch v.(type) {
	case undefinedValue:
		return kindUndefined
	case nil:
		return kindNull
	case string:
		return kindString
	case bool:
		return kindBool
	}
	if _, ok := numberOf(v); ok {
		return kindNumber
	}
	return kindObject
}

// strictEqual implements ===.
func strictEqual(a, b interface{}) bool {
	ka, kb := kindOf(a), kindOf(b)
	if ka != kb {
		return false
	}
	switch ka {
	case kindUndefined, kindNull:
		return true
	case kindNumber:
		fa, _ := numberOf(a)
		fb, _ := numberOf(b)
		return fa == fb
	case kindString:
		return a.(string) == b.(string)
	case kindBool:
		return a.(bool) == b.(bool)
	}
	return sameObject(a, b)
}

// looseEqual implements == including its type coercions.
func looseEqual(a, b interface{}) bool {
	ka, kb := kindOf(a), kindOf(b)
	if ka == kb {
		return strictEqual(a, b)
	}

	nullish := func(k kind) bool { return k == kindUndefined || k == kindNull }
	switch {
	case nullish(ka) && nullish(kb):
		return true
	case nullish(ka) || nullish(kb):
		return false
	case ka == kindBool:
		return looseEqual(boolNumber(a.(bool)), b)
	case kb == kindBool:
		return looseEqual(a, boolNumber(b.(bool)))
	case ka == kindNumber && kb == kindString:
		fa, _ := numberOf(a)
		return fa == stringToNumber(b.(string))
	case ka == kindString && kb == kindNumber:
		fb, _ := numberOf(b)
		return stringToNumber(a.(string)) == fb
	case ka == kindObject:
		return looseEqual(toText(a), b)
	case kb == kindObject:
		return looseEqual(a, toText(b))
	}
	return false
}

func boolNumber(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// sameObject compares mappings and sequences by identity.
func sameObject(a, b interface{}) bool {
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}
	switch ra.Kind() {
	case reflect.Map, reflect.Ptr:
		return ra.Pointer() == rb.Pointer()
	case reflect.Slice:
		return ra.Pointer() == rb.Pointer() && ra.Len() == rb.Len()
	}
	if ra.Type().Comparable() {
		return a == b
	}
	return false
}
