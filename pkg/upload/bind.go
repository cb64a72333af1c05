package upload

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/dmitrymomot/uploadkit/pkg/file"
)

// ErrInvalidTarget is returned by Bind for values it cannot populate.
var ErrInvalidTarget = errors.New("invalid bind target")

var (
	fileType    = reflect.TypeFor[file.File]()
	filePtrType = reflect.TypeFor[*file.File]()
)

// Bind copies a Result into the struct pointed to by v.
//
// Fields tagged `form:"name"` receive text values; fields tagged `file:"name"`
// receive stored files. A "-" tag skips the field.
//
// Supported form field types: string, bool, ints, uints, floats, slices of
// those and pointers for optional values. Supported file field types:
// file.File, *file.File, []file.File and []*file.File.
//
// Example:
//
//	type ProfileForm struct {
//		Username string       `form:"username"`
//		Tags     []string     `form:"tags"`
//		Avatar   *file.File   `file:"avatar"`
//		Gallery  []*file.File `file:"gallery"`
//	}
//
//	var form ProfileForm
//	if err := upload.Bind(res, &form); err != nil {
//		// ...
//	}
func Bind(res *Result, v any) error {
	if res == nil {
		return fmt.Errorf("%w: nil result", ErrInvalidTarget)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: target must be a non-nil pointer", ErrInvalidTarget)
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("%w: target must be a pointer to struct", ErrInvalidTarget)
	}

	files := filesByField(res)
	rt := rv.Type()

	for i := range rt.NumField() {
		field := rv.Field(i)
		sf := rt.Field(i)
		if !field.CanSet() {
			continue
		}

		if name, ok := tagName(sf, "file"); ok {
			if fs := files[name]; len(fs) > 0 {
				if err := setFiles(field, fs); err != nil {
					return fmt.Errorf("%w: field %s: %v", ErrInvalidTarget, sf.Name, err)
				}
			}
			continue
		}

		if name, ok := tagName(sf, "form"); ok {
			if values := res.Body[name]; len(values) > 0 {
				if err := setValues(field, values); err != nil {
					return fmt.Errorf("%w: field %s: %v", ErrInvalidTarget, sf.Name, err)
				}
			}
		}
	}
	return nil
}

func tagName(sf reflect.StructField, key string) (string, bool) {
	tag, ok := sf.Tag.Lookup(key)
	if !ok {
		return "", false
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return "", false
	}
	if name == "" {
		name = sf.Name
	}
	return name, true
}

func filesByField(res *Result) map[string][]*file.File {
	m := make(map[string][]*file.File, len(res.FileFields)+1)
	for _, f := range res.All() {
		m[f.FieldName] = append(m[f.FieldName], f)
	}
	return m
}

func setFiles(field reflect.Value, fs []*file.File) error {
	switch t := field.Type(); {
	case t == filePtrType:
		field.Set(reflect.ValueOf(fs[0]))
	case t == fileType:
		field.Set(reflect.ValueOf(*fs[0]))
	case t.Kind() == reflect.Slice && t.Elem() == filePtrType:
		field.Set(reflect.ValueOf(append([]*file.File(nil), fs...)))
	case t.Kind() == reflect.Slice && t.Elem() == fileType:
		out := make([]file.File, len(fs))
		for i, f := range fs {
			out[i] = *f
		}
		field.Set(reflect.ValueOf(out))
	default:
		return fmt.Errorf("unsupported type for file field: %s", t)
	}
	return nil
}

func setValues(field reflect.Value, values []string) error {
	t := field.Type()
	switch t.Kind() {
	case reflect.Pointer:
		ptr := reflect.New(t.Elem())
		if err := setValues(ptr.Elem(), values); err != nil {
			return err
		}
		field.Set(ptr)
		return nil
	case reflect.Slice:
		slice := reflect.MakeSlice(t, len(values), len(values))
		for i, s := range values {
			if err := setScalar(slice.Index(i), s); err != nil {
				return err
			}
		}
		field.Set(slice)
		return nil
	default:
		return setScalar(field, values[0])
	}
}

func setScalar(v reflect.Value, s string) error {
	switch v.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetFloat(f)
	default:
		return fmt.Errorf("unsupported type: %s", v.Type())
	}
	return nil
}
