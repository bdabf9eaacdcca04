package settings

import "fmt"

// CheckKeyFormat validates the key charset: non-empty, uppercase letters,
// digits and underscore only. Every lookup, update and flash-scan path runs
// through this check; a stored key that fails it doubles as the
// end-of-valid-data signal during a region scan.
func CheckKeyFormat(key string) error {
	if len(key) == 0 {
		return fmt.Errorf("%w: key is empty", ErrInvalidKey)
	}
	for i := 0; i < len(key); i++ {
		chr := key[i]
		if (chr < 'A' || chr > 'Z') && (chr < '0' || chr > '9') && chr != '_' {
			return fmt.Errorf("%w: character %q in key %q", ErrInvalidKey, chr, key)
		}
	}
	return nil
}

// CheckTypeFormat validates the type tag. Like the key check it doubles as a
// corruption detector when scanning records back from flash.
func CheckTypeFormat(t DataType) error {
	switch t {
	case TypeInt, TypeString, TypeBool:
		return nil
	default:
		return fmt.Errorf("%w: tag %d", ErrInvalidType, uint16(t))
	}
}
