package export

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Table is one named, ordered grid: a summary or a breakdown.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// Tabler is implemented by everything that can be exported.
type Tabler interface {
	Tables() []Table
}

// Tables adapts a plain slice of tables to Tabler.
type Tables []Table

func (t Tables) Tables() []Table { return t }

// TableOf builds a table from a struct, a pointer to a struct, or a slice of
// either. Columns come from the json tags in field order, so the header of
// an exported breakdown is the key set of its JSON rows.
func TableOf(name string, rows any) Table {
	t := Table{Name: name}
	v := reflect.ValueOf(rows)
	if !v.IsValid() {
		return t
	}
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return t
		}
		v = v.Elem()
	}

	var elem reflect.Type
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		elem = v.Type().Elem()
	case reflect.Struct:
		elem = v.Type()
		v = reflect.Append(reflect.MakeSlice(reflect.SliceOf(elem), 0, 1), v)
	default:
		return t
	}
	for elem.Kind() == reflect.Pointer {
		elem = elem.Elem()
	}
	if elem.Kind() != reflect.Struct {
		return t
	}

	fields := columnFields(elem)
	for _, f := range fields {
		t.Columns = append(t.Columns, f.name)
	}
	t.Rows = make([][]any, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		rv := v.Index(i)
		for rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				break
			}
			rv = rv.Elem()
		}
		row := make([]any, len(fields))
		if rv.Kind() == reflect.Struct {
			for j, f := range fields {
				row[j] = cellValue(rv.Field(f.index))
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

type columnField struct {
	name  string
	index int
}

func columnFields(typ reflect.Type) []columnField {
	var out []columnField
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		out = append(out, columnField{name: name, index: i})
	}
	return out
}

func cellValue(v reflect.Value) any {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	return v.Interface()
}

// FormatCell renders a cell for the text formats.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case time.Time:
		return x.Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}
