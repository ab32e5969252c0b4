// Command hwbus runs programs on an emulated machine whose devices talk
// only through a message bus.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime/pprof"

	"github.com/nf/hwbus/bus"
	"github.com/nf/hwbus/machine"
)

func main() {
	log.SetPrefix("hwbus: ")
	log.SetFlags(0)

	var (
		coreFlag    = flag.String("core", "", "CPU `core`: direct, program, lua or uxn (default from the file extension)")
		ticksFlag   = flag.Int("ticks", 1000, "number of ticks to run (0 runs until interrupted)")
		rateFlag    = flag.Int("rate", 0, "ticks per second (0 is unthrottled)")
		frameFlag   = flag.Int("frame", 1000, "ticks per video frame")
		vectorFlag  = flag.Uint("vector", 0, "Uxn interrupt vector `address`")
		memFlag     = flag.String("mem", "", "load RAM from `file`")
		protectFlag = flag.Bool("protect", false, "make the memory loaded with -mem read only")
		traceFlag   = flag.Bool("trace", false, "log every bus dispatch")
		guiFlag     = flag.Bool("gui", false, "show the display in a window")
		devFlag     = flag.Bool("dev", false, "enable developer mode (rebuild and restart when the program changes)")
		debugFlag   = flag.Bool("debug", false, "enable debugger (implies -dev)")
		snapFlag    = flag.String("snapshot", "", "write the final frame as PNG to `file`")
		scaleFlag   = flag.Int("scale", 2, "scale factor of -snapshot")
		stateFlag   = flag.Bool("state", false, "print the final machine state")

		cpuProfileFlag = flag.String("cpu_profile", "", "write CPU profile to `file`")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <program.prog | script.lua | program.rom | program.tal>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s [flags] <-dev | -debug> <program>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
	}

	base := machine.Config{
		Vector:        uint16(*vectorFlag),
		ProtectMemory: *protectFlag,
		FrameTicks:    *frameFlag,
	}
	if *coreFlag != "" {
		k, err := machine.ParseCoreKind(*coreFlag)
		if err != nil {
			log.Fatal(err)
		}
		base.Core = k
	}
	if *memFlag != "" {
		b, err := os.ReadFile(*memFlag)
		if err != nil {
			log.Fatal(err)
		}
		base.Memory = b
	}
	if *traceFlag {
		base.Tracer = bus.LogTracer{}
	}

	if *devFlag || *debugFlag {
		opts := devOptions{gui: *guiFlag, debug: *debugFlag, rate: *rateFlag}
		if err := devMode(opts, base, flag.Arg(0)); err != nil {
			log.Fatal(err)
		}
		return
	}

	var cpuProfile io.Closer
	if prof := *cpuProfileFlag; prof != "" {
		f, err := os.Create(prof)
		if err != nil {
			log.Fatalf("creating CPU profile file: %v", err)
		}
		pprof.StartCPUProfile(f)
		cpuProfile = f
	}

	m, err := run(base, flag.Arg(0), *ticksFlag, *rateFlag, *guiFlag)

	if f := cpuProfile; f != nil {
		pprof.StopCPUProfile()
		f.Close()
	}

	if m != nil {
		if *stateFlag {
			fmt.Println(m.State())
		}
		if *snapFlag != "" {
			if err := writeSnapshot(*snapFlag, m.Frame(), *scaleFlag); err != nil {
				log.Print(err)
			}
		}
		m.Close()
	}
	if err != nil {
		log.Fatal(err)
	}
}

// run builds the machine for file and runs it for ticks ticks, or until
// the window is closed if gui is set.
func run(base machine.Config, file string, ticks, rate int, gui bool) (*machine.Machine, error) {
	cfg, _, err := load(base, file, io.Discard)
	if err != nil {
		return nil, err
	}
	m, err := machine.New(cfg)
	if err != nil {
		return nil, err
	}
	if !gui && rate == 0 && ticks > 0 {
		return m, m.Run(ticks)
	}

	r := machine.NewRunner(m)
	r.Limit = uint64(ticks)
	r.Rate = rate
	r.Start(false)
	if gui {
		err = runGUI(r)
		if e := r.Stop(); err == nil {
			err = e
		}
	} else {
		err = r.Wait()
	}
	return r.Machine(), err
}
