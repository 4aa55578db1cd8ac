// Command vectrexcore runs the core emulation engine headlessly: it loads a
// system ROM and an optional cartridge, then drives the machine frame by
// frame, reporting phosphor-ring activity on an interval. It has no display
// or input backend of its own — those are host-application concerns outside
// this engine's scope — so it exists to exercise the engine end to end from
// the command line, the way the teacher's cmd/emulator exercises its
// emulator package before handing off to a UI.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"vectrexcore/internal/debug"
	"vectrexcore/internal/machine"
	"vectrexcore/internal/psg"
)

func main() {
	systemROMPath := flag.String("system-rom", "", "Path to the Vectrex system ROM")
	cartridgePath := flag.String("cartridge", "", "Path to a cartridge ROM (optional)")
	unlimited := flag.Bool("unlimited", false, "Run at unlimited (warp) speed, no audio and no 50Hz pacing")
	audio := flag.Bool("audio", true, "Enable PSG audio output via the default sound device")
	enableLogging := flag.Bool("log", false, "Enable component logging to stderr")
	frames := flag.Int("frames", 0, "Stop after N frames (0 = run until interrupted)")
	breakAddrs := flag.String("break", "", "Comma-separated hex addresses to set CPU breakpoints at (e.g. C800,FFFE)")
	flag.Parse()

	if *systemROMPath == "" {
		fmt.Println("Usage: vectrexcore -system-rom <path> [-cartridge <path>] [-unlimited] [-audio=false] [-log] [-frames N] [-break C800,FFFE]")
		os.Exit(1)
	}

	systemROM, err := os.ReadFile(*systemROMPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading system ROM: %v\n", err)
		os.Exit(1)
	}

	var cartridge []uint8
	if *cartridgePath != "" {
		cartridge, err = os.ReadFile(*cartridgePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error reading cartridge: %v\n", err)
			os.Exit(1)
		}
	}

	var logger *debug.Logger
	if *enableLogging {
		logger = debug.NewLogger(10000)
		logger.SetComponentEnabled(debug.ComponentCPU, true)
		logger.SetComponentEnabled(debug.ComponentVIA, true)
		logger.SetComponentEnabled(debug.ComponentVideo, true)
		logger.SetComponentEnabled(debug.ComponentPSG, true)
		logger.SetComponentEnabled(debug.ComponentMemory, true)
		logger.SetComponentEnabled(debug.ComponentJoystick, true)
		logger.SetComponentEnabled(debug.ComponentMachine, true)
	}

	sink := psg.Sink(psg.NullSink{})
	if *audio && !*unlimited {
		otoSink, err := psg.NewOtoSink(psg.SampleRate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "audio device unavailable, falling back to silence: %v\n", err)
		} else {
			sink = otoSink
		}
	}

	m, err := machine.New(systemROM, sink, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error building machine: %v\n", err)
		os.Exit(1)
	}
	if err := m.Init(cartridge); err != nil {
		fmt.Fprintf(os.Stderr, "error initializing machine: %v\n", err)
		os.Exit(1)
	}

	if *breakAddrs != "" {
		for _, tok := range strings.Split(*breakAddrs, ",") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			addr, err := strconv.ParseUint(tok, 16, 16)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error parsing -break address %q: %v\n", tok, err)
				os.Exit(1)
			}
			m.Debugger().SetBreakpoint(uint16(addr))
			fmt.Printf("breakpoint set at %04X\n", addr)
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		m.Stop()
	}()

	fmt.Printf("vectrexcore: system ROM %s, cartridge %q, unlimited=%v audio=%v\n",
		*systemROMPath, *cartridgePath, *unlimited, *audio)

	start := time.Now()
	var frameCount int
	for !m.ShouldExit() {
		frame := m.RunUntilFrame(*unlimited)
		if m.Debugger().IsPaused() {
			fmt.Printf("stopped at breakpoint, PC=%04X, frame %d, elapsed=%s\n",
				m.CPU().PC(), frameCount, time.Since(start).Round(time.Second))
			break
		}
		frameCount++
		if frameCount%50 == 0 {
			fmt.Printf("frame %d, phosphors added=%d elapsed=%s\n",
				frameCount, frame.Phosphors.Add(), time.Since(start).Round(time.Second))
		}
		if *frames > 0 && frameCount >= *frames {
			break
		}
	}
}
