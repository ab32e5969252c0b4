package main

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/howeyc/fsnotify"

	"github.com/nf/hwbus/machine"
)

type devOptions struct {
	gui   bool
	debug bool
	rate  int
}

// devMode runs the program in file, rebuilding the machine and swapping it
// in whenever the file changes.
func devMode(opts devOptions, base machine.Config, file string) error {
	file = filepath.Clean(file)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Watch(filepath.Dir(file)); err != nil {
		return err
	}

	var (
		out io.Writer = os.Stderr
		d   *debugger
	)
	if opts.debug {
		d = newDebugger()
		out = d.log
		log.SetPrefix("")
		log.SetOutput(d.log)
	}

	machines := make(chan *machine.Machine)
	go func() {
		build := time.After(1 * time.Millisecond)
		for {
			select {
			case <-build:
				log.Printf("dev: build %s", filepath.Base(file))
				cfg, syms, err := load(base, file, out)
				if err != nil {
					log.Printf("dev: %v", err)
					break
				}
				m, err := machine.New(cfg)
				if err != nil {
					log.Printf("dev: %v", err)
					break
				}
				if d != nil {
					d.setSymbols(syms)
				}
				machines <- m
			case ev := <-watcher.Event:
				if ev.Name == file && !ev.IsAttrib() {
					build = time.After(100 * time.Millisecond)
				}
			case err := <-watcher.Error:
				log.Printf("dev: watcher: %v", err)
			}
		}
	}()

	r := machine.NewRunner(<-machines)
	r.Dev = true
	r.Rate = opts.rate
	if d != nil {
		d.run = r
		r.StateFunc = d.StateFunc
		go func() {
			if err := d.Run(); err != nil {
				log.Fatalf("debug: %v", err)
			}
			log.SetOutput(os.Stderr)
			log.SetPrefix("hwbus: ")
			r.Debug("exit", 0)
		}()
	}
	log.Printf("dev: start")
	r.Start(d != nil)
	go func() {
		for m := range machines {
			log.Printf("dev: reset")
			r.Swap(m)
		}
	}()

	if opts.gui {
		if err := runGUI(r); err != nil {
			return err
		}
		r.Stop()
	}
	err = r.Wait()
	r.Machine().Close()
	if d != nil {
		d.app.Stop()
	}
	return err
}
