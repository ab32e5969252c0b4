package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/nf/hwbus/device"
	"github.com/nf/hwbus/machine"
)

// load returns base with the program in file added, and the symbols of a
// Uxn program if it has any. Assembler output is written to out.
func load(base machine.Config, file string, out io.Writer) (machine.Config, symbols, error) {
	cfg := base
	ext := filepath.Ext(file)
	want := map[string][]machine.CoreKind{
		".prog": {machine.Direct, machine.Program},
		".lua":  {machine.Lua},
		".rom":  {machine.Uxn},
		".tal":  {machine.Uxn},
	}[ext]
	if len(want) == 0 {
		return cfg, nil, fmt.Errorf("%s: unknown file type %q", file, ext)
	}
	if cfg.Core == "" {
		cfg.Core = want[0]
	} else if !hasKind(want, cfg.Core) {
		return cfg, nil, fmt.Errorf("%s: %s core cannot run %s files", file, cfg.Core, ext)
	}

	var syms symbols
	switch ext {
	case ".prog":
		f, err := os.Open(file)
		if err != nil {
			return cfg, nil, err
		}
		defer f.Close()
		cfg.Program, err = device.ParseProgram(f)
		if err != nil {
			return cfg, nil, fmt.Errorf("%s: %v", file, err)
		}
	case ".lua":
		b, err := os.ReadFile(file)
		if err != nil {
			return cfg, nil, err
		}
		cfg.Script = string(b)
	case ".rom":
		b, err := os.ReadFile(file)
		if err != nil {
			return cfg, nil, err
		}
		cfg.ROM = b
		if syms, err = readSymbols(file + ".sym"); err != nil {
			return cfg, nil, err
		}
	case ".tal":
		tmp, err := os.MkdirTemp("", "hwbus-build-*")
		if err != nil {
			return cfg, nil, err
		}
		defer os.RemoveAll(tmp)
		romFile := filepath.Join(tmp, filepath.Base(file)+".rom")
		if cfg.ROM, err = devBuild(out, file, romFile); err != nil {
			return cfg, nil, err
		}
		if syms, err = readSymbols(romFile + ".sym"); err != nil {
			return cfg, nil, err
		}
	}
	return cfg, syms, nil
}

func hasKind(ks []machine.CoreKind, k machine.CoreKind) bool {
	for _, kk := range ks {
		if kk == k {
			return true
		}
	}
	return false
}

// readSymbols is parseSymbols for an optional file.
func readSymbols(symFile string) (symbols, error) {
	syms, err := parseSymbols(symFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading symbols: %v", err)
	}
	return syms, nil
}

func devBuild(out io.Writer, talFile, romFile string) ([]byte, error) {
	cmd := exec.Command("uxnasm", talFile, romFile)
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("uxnasm: %v", err)
	}
	return os.ReadFile(romFile)
}
