package consensus

import (
	"fmt"
	"reflect"
	"strings"
)

// NormalizeSKU returns the canonical form of a scanned code: the leading run of
// ASCII letters/digits, uppercased. Anything from the first other character on
// is dropped ("abc123#extra" -> "ABC123"). Input with no leading match yields "".
func NormalizeSKU(raw string) string {
	end := 0
	for end < len(raw) && isASCIIAlnum(raw[end]) {
		end++
	}
	if end == 0 {
		return ""
	}
	return strings.ToUpper(raw[:end])
}

func isASCIIAlnum(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// PadCode strips non-digits and left-pads to two characters.
// Wider values are kept as is: PadCode(123) == "123".
func PadCode(value any) string {
	var s string
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		s = v
	case *string:
		if v == nil {
			return ""
		}
		s = *v
	case fmt.Stringer:
		s = v.String()
	default:
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			s = fmt.Sprint(rv.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			s = fmt.Sprint(rv.Uint())
		case reflect.Ptr:
			if rv.IsNil() {
				return ""
			}
			return PadCode(rv.Elem().Interface())
		default:
			s = fmt.Sprint(value)
		}
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	digits := b.String()
	switch len(digits) {
	case 0:
		return ""
	case 1:
		return "0" + digits
	default:
		return digits
	}
}
