package assert

import "reflect"

// NotNil panics if value is nil, including typed nils stored in an interface.
// It is meant for constructor arguments, a nil there is a wiring bug.
func NotNil(value any) {
	if value == nil {
		panic("expected value to be not nil")
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		if rv.IsNil() {
			panic("expected value to be not nil")
		}
	}
}

func NotEmptyStr(str string) {
	if str == "" {
		panic("expected string to be non-empty")
	}
}

// Positive panics if n <= 0.
func Positive[T ~int | ~int64 | ~float64](n T) {
	if n <= 0 {
		panic("expected value to be positive")
	}
}
