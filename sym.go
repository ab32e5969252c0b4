package main

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// symbols are the labels of a Uxn program, sorted by address.
type symbols []symbol

type symbol struct {
	addr  uint16
	label string
}

func (s symbol) String() string { return fmt.Sprintf("%s (%.4x)", s.label, s.addr) }

func (s symbols) forAddr(addr uint16) (ss []symbol) {
	i := sort.Search(len(s), func(i int) bool { return s[i].addr >= addr })
	for ; i < len(s) && s[i].addr == addr; i++ {
		ss = append(ss, s[i])
	}
	return ss
}

func (s symbols) withLabelPrefix(prefix string) (ss []symbol) {
	for _, sym := range s {
		if strings.HasPrefix(sym.label, prefix) {
			ss = append(ss, sym)
		}
	}
	return ss
}

// resolve returns the symbol labelled name, or an unlabelled symbol if
// name is a hex address.
func (s symbols) resolve(name string) (symbol, bool) {
	for _, sym := range s {
		if sym.label == name {
			return sym, true
		}
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(name, "#"), 16, 16)
	if err != nil {
		return symbol{}, false
	}
	if ss := s.forAddr(uint16(n)); len(ss) > 0 {
		return ss[0], true
	}
	return symbol{addr: uint16(n), label: fmt.Sprintf("%.4x", n)}, true
}

// parseSymbols reads a symbol file written by uxnasm: each entry is a
// big-endian address followed by a NUL terminated label.
func parseSymbols(symFile string) (symbols, error) {
	b, err := os.ReadFile(symFile)
	if err != nil {
		return nil, err
	}
	return decodeSymbols(b)
}

func decodeSymbols(b []byte) (symbols, error) {
	var ss symbols
	for len(b) > 0 {
		if len(b) < 3 {
			return nil, fmt.Errorf("invalid symbol at end of file %q", b)
		}
		s := symbol{addr: uint16(b[0])<<8 + uint16(b[1])}
		b = b[2:]
		i := bytes.IndexByte(b, 0)
		if i < 0 {
			return nil, fmt.Errorf("invalid symbol label at %.4x %q", s.addr, b)
		}
		s.label = string(b[:i])
		b = b[i+1:]
		ss = append(ss, s)
	}
	sort.SliceStable(ss, func(i, j int) bool {
		return ss[i].addr < ss[j].addr
	})
	return ss, nil
}
