package domain

import (
	"errors"
	"strconv"
)

var ErrChildLockEncodingUnknown = errors.New("child lock encoding unknown: attribute never reported by device")

type ChildLockKind int

const (
	ChildLockUnknown ChildLockKind = iota
	ChildLockBool
	ChildLockStringFlag
)

func (k ChildLockKind) String() string {
	switch k {
	case ChildLockBool:
		return "bool"
	case ChildLockStringFlag:
		return "string_flag"
	}
	return "unknown"
}

// ChildLock keeps the vendor encoding of the child lock attribute. Some
// devices report a boolean, others the strings "0"/"1", and writes must use
// the same encoding.
type ChildLock struct {
	Kind ChildLockKind
	Bool bool
	Flag string
}

func ParseChildLock(raw any) (ChildLock, bool) {
	switch v := raw.(type) {
	case bool:
		return ChildLock{Kind: ChildLockBool, Bool: v}, true
	case string:
		return ChildLock{Kind: ChildLockStringFlag, Flag: v}, true
	case float64:
		return ChildLock{Kind: ChildLockStringFlag, Flag: strconv.FormatFloat(v, 'f', -1, 64)}, true
	}
	return ChildLock{}, false
}

func (c ChildLock) Locked() bool {
	if c.Kind == ChildLockBool {
		return c.Bool
	}
	return c.Flag == "1"
}

func (c ChildLock) With(locked bool) ChildLock {
	switch c.Kind {
	case ChildLockBool:
		return ChildLock{Kind: ChildLockBool, Bool: locked}
	default:
		flag := "0"
		if locked {
			flag = "1"
		}
		return ChildLock{Kind: ChildLockStringFlag, Flag: flag}
	}
}

func (c ChildLock) Raw() any {
	if c.Kind == ChildLockBool {
		return c.Bool
	}
	return c.Flag
}
