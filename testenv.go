package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"pulse/resonance"
	"pulse/speak"
	"pulse/tone"
	"pulse/transcriber"
)

// runTestMode drives the monitor from stdin with no audio hardware.
// Commands: SAY <text>, LEVEL <0-255>, SLEEP <ms>, STATUS, QUIT.
func runTestMode() {
	tone.Disable()

	voice := speak.NewFake()
	fakeTr := transcriber.NewFake()

	m := resonance.NewMonitor(resonance.Options{
		Transcriber: fakeTr,
		Synth:       tone.Synth{},
		Voice:       voice,
		OnInfraction: func(reason string, penalty, score float64) {
			fmt.Printf("INFRACTION %s -%.1f %.1f\n", reason, penalty, score)
		},
		OnTilt: func(count int) {
			fmt.Printf("TILT %d\n", count)
		},
	})
	m.Start(context.Background())

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case "SAY":
			fakeTr.Session().Push(arg)
		case "LEVEL":
			if level, err := strconv.ParseFloat(arg, 64); err == nil {
				m.HandleLoudness(level)
			}
		case "SLEEP":
			if ms, err := strconv.Atoi(arg); err == nil {
				time.Sleep(time.Duration(ms) * time.Millisecond)
			}
		case "STATUS":
			u := m.Snapshot()
			fmt.Printf("STATUS %.1f %s %d\n", u.Score, u.State, u.TiltCount)
		case "QUIT":
			m.Stop()
			os.Exit(0)
		case "":
		default:
			fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		}
	}
	m.Stop()
}
