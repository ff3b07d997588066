package walletcfg

import (
	"fmt"
	"strconv"
)

// Origin records who is responsible for the current value of an option.
type Origin uint8

const (
	// OriginUnset means neither the user nor an automatic override touched
	// the option, so it still holds its default.
	OriginUnset Origin = iota

	// OriginUser means the value came from the command line or the config
	// file.
	OriginUser

	// OriginAuto means the value was installed by a parameter interaction
	// rule.
	OriginAuto
)

// String returns a human readable name for the origin.
func (o Origin) String() string {
	switch o {
	case OriginUnset:
		return "unset"
	case OriginUser:
		return "user"
	case OriginAuto:
		return "auto"
	default:
		return fmt.Sprintf("origin(%d)", uint8(o))
	}
}

// Bool is a boolean option value paired with its origin.
type Bool struct {
	Value  bool
	Origin Origin
}

// UserBool returns a Bool explicitly set by the user.
func UserBool(v bool) Bool {
	return Bool{Value: v, Origin: OriginUser}
}

// DefaultBool returns an unset Bool holding its default value.
func DefaultBool(v bool) Bool {
	return Bool{Value: v}
}

// IsSet returns true if either the user or an earlier rule already decided
// the value.
func (b Bool) IsSet() bool {
	return b.Origin != OriginUnset
}

// SoftSet returns a copy of b holding v if nothing set it yet. The second
// return value reports whether the override was applied.
func (b Bool) SoftSet(v bool) (Bool, bool) {
	if b.IsSet() {
		return b, false
	}

	return Bool{Value: v, Origin: OriginAuto}, true
}

// String returns the value the way it would be written on the command line.
func (b Bool) String() string {
	if b.Value {
		return "1"
	}
	return "0"
}

// BoolFlag is a boolean command line option that takes an optional explicit
// value. Plain bool options can only ever be switched on, which makes options
// defaulting to true impossible to disable from the command line.
type BoolFlag bool

// UnmarshalFlag parses the explicit value given to the option.
//
// NOTE: This is part of the flags.Unmarshaler interface.
func (b *BoolFlag) UnmarshalFlag(value string) error {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid boolean value %q", value)
	}
	*b = BoolFlag(v)
	return nil
}

// MarshalFlag formats the value for help output and config file writing.
//
// NOTE: This is part of the flags.Marshaler interface.
func (b BoolFlag) MarshalFlag() (string, error) {
	return strconv.FormatBool(bool(b)), nil
}
