package main

import (
	"flag"
	"fmt"
	"strconv"
)

// flagSet wraps flag.FlagSet to add support for uint64 and hex address
// flags.
type flagSet struct {
	*flag.FlagSet
}

// newCustomFlagSet creates a flagSet with ContinueOnError behavior.
func newCustomFlagSet(name string) *flagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	return &flagSet{FlagSet: fs}
}

// Uint64Var defines a uint64 flag. Go's standard flag package parses
// uint64 in base 10 only; this one also accepts 0x-prefixed values and
// underscores.
func (fs *flagSet) Uint64Var(p *uint64, name string, value uint64, usage string) {
	fs.FlagSet.Var(&uint64Value{p: p}, name, usage)
	*p = value
}

// AddrVar defines a 32-bit address flag, printed and accepted in hex.
func (fs *flagSet) AddrVar(p *uint32, name string, value uint32, usage string) {
	fs.FlagSet.Var(&addrValue{p: p}, name, usage)
	*p = value
}

// setFlags returns the current string value of every flag set on the
// command line.
func (fs *flagSet) setFlags() map[string]string {
	set := make(map[string]string)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = f.Value.String()
	})
	return set
}

// uint64Value implements flag.Value for uint64 flags.
type uint64Value struct {
	p *uint64
}

func (v *uint64Value) String() string {
	if v.p == nil {
		return "0"
	}
	return strconv.FormatUint(*v.p, 10)
}

func (v *uint64Value) Set(s string) error {
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return fmt.Errorf("invalid uint64 value %q", s)
	}
	*v.p = n
	return nil
}

// addrValue implements flag.Value for 32-bit addresses.
type addrValue struct {
	p *uint32
}

func (v *addrValue) String() string {
	if v.p == nil {
		return "0x00000000"
	}
	return fmt.Sprintf("0x%08X", *v.p)
}

func (v *addrValue) Set(s string) error {
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return fmt.Errorf("invalid 32-bit address %q", s)
	}
	*v.p = uint32(n)
	return nil
}
