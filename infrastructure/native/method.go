package native

import (
	"reflect"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Bind-Forward/port/domain/ports"
)

// bindMethod resolves method on instance. Protocol method names are
// lowercase ("predict") while Go exports are capitalized, so the exported
// spelling is tried as well. A nil Func with no error means no such method.
func bindMethod(instance any, method string) (ports.Func, error) {
	v := reflect.ValueOf(instance)
	m := v.MethodByName(method)
	if !m.IsValid() {
		m = v.MethodByName(exported(method))
	}
	if !m.IsValid() {
		return nil, nil
	}
	return wrapMethod(m)
}

func exported(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

func methodNames(instance any) []string {
	t := reflect.TypeOf(instance)
	names := make([]string, 0, t.NumMethod())
	for i := 0; i < t.NumMethod(); i++ {
		names = append(names, strings.ToLower(t.Method(i).Name[:1])+t.Method(i).Name[1:])
	}
	sort.Strings(names)
	return names
}
