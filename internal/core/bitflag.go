package core

import (
	"fmt"
	"strings"
)

// bitFlag scans a single-bit column into a bool. It is the only place the raw
// encoding of a BIT(1) flag is interpreted; everything downstream sees a bool.
//
// Depending on the column type and the driver path the value arrives as a bool,
// an int64 (0/1), a text form ("0", "1", "t", "f", "true", "false") or a raw
// byte buffer (ASCII digit or a single 0x00/0x01 byte).
type bitFlag bool

func (b *bitFlag) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		return fmt.Errorf("bit flag: NULL is not a valid value")
	case bool:
		*b = bitFlag(v)
		return nil
	case int64:
		return b.fromInt(v)
	case string:
		return b.fromText(v)
	case []byte:
		if len(v) == 1 && (v[0] == 0 || v[0] == 1) {
			*b = v[0] == 1
			return nil
		}
		return b.fromText(string(v))
	default:
		return fmt.Errorf("bit flag: unsupported source type %T", src)
	}
}

func (b *bitFlag) fromInt(v int64) error {
	switch v {
	case 0:
		*b = false
	case 1:
		*b = true
	default:
		return fmt.Errorf("bit flag: integer %d is not 0 or 1", v)
	}
	return nil
}

func (b *bitFlag) fromText(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true":
		*b = true
	case "0", "f", "false":
		*b = false
	default:
		return fmt.Errorf("bit flag: text %q is not a bit value", s)
	}
	return nil
}
