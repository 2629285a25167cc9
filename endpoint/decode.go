package endpoint

import (
	"encoding"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
)

// defaultFieldLimit bounds a single decoded value when no maxLength tag is set.
var defaultFieldLimit = 16 * 1024

// sources lists the supported struct tags in precedence order.
var sources = []string{"path", "query", "header", "cookie"}

// Unmarshal populates dst, a non-nil pointer to a struct, from the request.
//
// Supported tags, in precedence order:
//   - `path:"name"`   r.PathValue(name)
//   - `query:"name"`  r.URL.Query()
//   - `header:"name"` r.Header
//   - `cookie:"name"` r.Cookies()
//
// An empty name defaults to the lowercased field name; "-" skips the source.
// Fields may be strings, bools, integers, slices of those, or implement
// encoding.TextUnmarshaler. Embedded structs are decoded in place.
//
// `maxLength:"n"` caps the byte length of each value (default 16KB, "0" for no
// limit). Oversized or unparsable values produce a 400 *EndpointError.
// Fields with no value present are left untouched.
func Unmarshal(r *http.Request, dst any) error {
	if r == nil {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: nil request"))
	}
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: dst must be a non-nil pointer"))
	}
	root := v.Elem()
	if root.Kind() != reflect.Struct {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: dst must point to a struct"))
	}
	return decodeStruct(r, root)
}

func decodeStruct(r *http.Request, sv reflect.Value) error {
	st := sv.Type()
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		fv := sv.Field(i)

		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			if err := decodeStruct(r, fv); err != nil {
				return err
			}
			continue
		}
		if !sf.IsExported() || !fv.CanSet() {
			continue
		}

		values, ok := lookup(r, sf)
		if !ok {
			continue
		}

		limit, err := maxLength(sf)
		if err != nil {
			return Error(http.StatusInternalServerError, "", err)
		}
		for _, s := range values {
			if limit > 0 && len(s) > limit {
				return Error(http.StatusBadRequest, fmt.Sprintf("%s exceeds maximum length of %d bytes", sf.Name, limit), nil)
			}
		}

		if err := setField(fv, values); err != nil {
			return Error(http.StatusBadRequest, "invalid "+sf.Name, err)
		}
	}
	return nil
}

// lookup returns the values for the first tagged source that has any.
func lookup(r *http.Request, sf reflect.StructField) ([]string, bool) {
	for _, src := range sources {
		tag, tagged := sf.Tag.Lookup(src)
		if !tagged || tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if name == "" {
			name = strings.ToLower(sf.Name)
		}

		var values []string
		switch src {
		case "path":
			if s := r.PathValue(name); s != "" {
				values = []string{s}
			}
		case "query":
			if r.URL != nil {
				values = r.URL.Query()[name]
			}
		case "header":
			values = r.Header.Values(name)
		case "cookie":
			for _, c := range r.Cookies() {
				if c.Name == name {
					values = append(values, c.Value)
				}
			}
		}
		if len(values) > 0 {
			return values, true
		}
	}
	return nil, false
}

func maxLength(sf reflect.StructField) (int, error) {
	tag, ok := sf.Tag.Lookup("maxLength")
	if !ok {
		return defaultFieldLimit, nil
	}
	if tag == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(tag)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("endpoint: decode: invalid maxLength %q on %s", tag, sf.Name)
	}
	return n, nil
}

var textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

func setField(fv reflect.Value, values []string) error {
	if fv.Kind() == reflect.Slice && !fv.Type().Implements(textUnmarshalerType) {
		out := reflect.MakeSlice(fv.Type(), len(values), len(values))
		for i, s := range values {
			if err := setScalar(out.Index(i), s); err != nil {
				return err
			}
		}
		fv.Set(out)
		return nil
	}
	return setScalar(fv, values[0])
}

func setScalar(fv reflect.Value, s string) error {
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			fv.Set(reflect.New(fv.Type().Elem()))
		}
		return setScalar(fv.Elem(), s)
	}
	if fv.CanAddr() {
		if tu, ok := fv.Addr().Interface().(encoding.TextUnmarshaler); ok {
			return tu.UnmarshalText([]byte(s))
		}
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetUint(n)
	default:
		return fmt.Errorf("endpoint: decode: unsupported field type %s", fv.Type())
	}
	return nil
}
