package fluent

import (
	"database/sql"
	"encoding/json"
	"io"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unsafe"
)

type (
	// Field is a struct field mapped to a column.
	Field struct {
		Name       string // struct field name
		ColumnName string // column name in database
		JsonName   string // key name in json input
		index      []int
	}

	// Permitted filters input down to a whitelist of columns. Create it with
	// Permit and use Filter to build Changes from user input.
	Permitted struct {
		columns []string
		all     bool
	}
)

var timeType = reflect.TypeOf(time.Time{})

// Permit creates a filter that only keeps the given columns. Without
// columns every input key is kept.
func Permit(columns ...string) *Permitted {
	return &Permitted{columns: columns, all: len(columns) == 0}
}

// PermittedColumns returns the whitelist.
func (p Permitted) PermittedColumns() []string {
	return p.columns
}

func (p Permitted) permits(column string) bool {
	if p.all {
		return true
	}
	for _, c := range p.columns {
		if c == column {
			return true
		}
	}
	return false
}

// Filter extracts the permitted columns from the inputs. Inputs may be
// Changes, Row, map[string]interface{}, a JSON object as string, []byte or
// io.Reader, or a struct (columns by "column" tag or underscored field
// name). Later inputs override earlier ones.
//
//	changes := fluent.Permit("name", "description").Filter(requestBody)
//	err := conn.Table("categories").Insert(changes)
func (p Permitted) Filter(inputs ...interface{}) (out Changes) {
	out = Changes{}
	for _, input := range inputs {
		switch in := input.(type) {
		case Changes:
			p.filterMap(in, out)
		case Row:
			p.filterMap(in, out)
		case map[string]interface{}:
			p.filterMap(in, out)
		case string:
			var c map[string]interface{}
			if json.Unmarshal([]byte(in), &c) == nil {
				p.filterMap(c, out)
			}
		case []byte:
			var c map[string]interface{}
			if json.Unmarshal(in, &c) == nil {
				p.filterMap(c, out)
			}
		case io.Reader:
			var c map[string]interface{}
			if json.NewDecoder(in).Decode(&c) == nil {
				p.filterMap(c, out)
			}
		default:
			rv := reflect.Indirect(reflect.ValueOf(in))
			if rv.Kind() != reflect.Struct {
				continue
			}
			for _, field := range parseStruct(rv.Type()) {
				if p.permits(field.ColumnName) {
					out[field.ColumnName] = rv.FieldByIndex(field.index).Interface()
				}
			}
		}
	}
	return
}

func (p Permitted) filterMap(in map[string]interface{}, out Changes) {
	for key, value := range in {
		if p.permits(key) {
			out[key] = value
		}
	}
}

// parseStruct collects the column fields of a struct type, descending into
// embedded structs.
func parseStruct(rt reflect.Type) (fields []Field) {
	if rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct && f.Type != timeType {
			for _, e := range parseStruct(f.Type) {
				e.index = append([]int{i}, e.index...)
				fields = append(fields, e)
			}
			continue
		}

		columnName := f.Tag.Get("column")
		if columnName == "-" {
			continue
		}
		if idx := strings.Index(columnName, ","); idx != -1 {
			columnName = columnName[:idx]
		}
		if columnName == "" {
			if f.PkgPath != "" {
				continue // ignore unexported field if no column specified
			}
			columnName = toColumnName(f.Name)
		}

		jsonName := f.Tag.Get("json")
		if jsonName == "-" {
			jsonName = ""
		} else {
			if idx := strings.Index(jsonName, ","); idx != -1 {
				jsonName = jsonName[:idx]
			}
			if jsonName == "" {
				jsonName = f.Name
			}
		}

		fields = append(fields, Field{
			Name:       f.Name,
			ColumnName: columnName,
			JsonName:   jsonName,
			index:      []int{i},
		})
	}
	return
}

// bindRow copies a row into a struct. target must be a pointer to a struct.
func bindRow(row Row, target interface{}) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrInvalidTarget
	}
	return bindStruct(row, rv.Elem())
}

// bindRows copies rows into target, a pointer to a slice of structs or of
// struct pointers, or a pointer to a struct for the first row.
func bindRows(rows []Row, target interface{}) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return ErrInvalidTarget
	}
	rv = rv.Elem()
	switch rv.Kind() {
	case reflect.Struct:
		if len(rows) == 0 {
			return ErrNoRows
		}
		return bindStruct(rows[0], rv)
	case reflect.Slice:
	default:
		return ErrInvalidTarget
	}
	et := rv.Type().Elem()
	isPtr := et.Kind() == reflect.Ptr
	if isPtr {
		et = et.Elem()
	}
	if et.Kind() != reflect.Struct {
		return ErrInvalidTarget
	}
	out := reflect.MakeSlice(rv.Type(), 0, len(rows))
	for _, row := range rows {
		v := reflect.New(et)
		if err := bindStruct(row, v.Elem()); err != nil {
			return err
		}
		if isPtr {
			out = reflect.Append(out, v)
		} else {
			out = reflect.Append(out, v.Elem())
		}
	}
	rv.Set(out)
	return nil
}

func bindStruct(row Row, rv reflect.Value) error {
	for _, field := range parseStruct(rv.Type()) {
		value, ok := row[field.ColumnName]
		if !ok {
			continue
		}
		f := rv.FieldByIndex(field.index)
		if !f.CanSet() {
			// unexported field with a column tag
			f = reflect.NewAt(f.Type(), unsafe.Pointer(f.UnsafeAddr())).Elem()
		}
		if err := assign(f, value); err != nil {
			return err
		}
	}
	return nil
}

func assign(dst reflect.Value, value interface{}) error {
	if value == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	if s, ok := dst.Addr().Interface().(sql.Scanner); ok {
		return s.Scan(value)
	}
	if dst.Kind() == reflect.Ptr {
		v := reflect.New(dst.Type().Elem())
		if err := assign(v.Elem(), value); err != nil {
			return err
		}
		dst.Set(v)
		return nil
	}
	src := reflect.ValueOf(value)
	if dst.Type() == timeType {
		if s, ok := value.(string); ok {
			t, err := parseTime(s)
			if err != nil {
				return err
			}
			dst.Set(reflect.ValueOf(t))
			return nil
		}
	}
	if s, ok := value.(string); ok {
		switch dst.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			i, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return err
			}
			dst.SetInt(i)
			return nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			u, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return err
			}
			dst.SetUint(u)
			return nil
		case reflect.Float32, reflect.Float64:
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return err
			}
			dst.SetFloat(f)
			return nil
		case reflect.Bool:
			b, err := strconv.ParseBool(s)
			if err != nil {
				return err
			}
			dst.SetBool(b)
			return nil
		case reflect.String:
			dst.SetString(s)
			return nil
		case reflect.Map, reflect.Slice, reflect.Struct:
			return json.Unmarshal([]byte(s), dst.Addr().Interface())
		}
	}
	if dst.Kind() == reflect.String {
		dst.SetString(Row{"v": value}.String("v"))
		return nil
	}
	if dst.Kind() == reflect.Bool {
		i, err := toInt64(value)
		if err != nil {
			return err
		}
		dst.SetBool(i != 0)
		return nil
	}
	if src.Type().ConvertibleTo(dst.Type()) {
		dst.Set(src.Convert(dst.Type()))
		return nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst.Addr().Interface())
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{DateTimeFormat, time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Parse(DateTimeFormat, s)
}

func isStructPointer(target interface{}) bool {
	rt := reflect.TypeOf(target)
	return rt != nil && rt.Kind() == reflect.Ptr && rt.Elem().Kind() == reflect.Struct
}
