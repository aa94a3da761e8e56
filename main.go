package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"pulse/audio"
	"pulse/coach"
	"pulse/config"
	"pulse/doctor"
	"pulse/log"
	"pulse/resonance"
	"pulse/shutdown"
	"pulse/speak"
	"pulse/tone"
	"pulse/transcriber"
)

var version = "dev"

var (
	monitor      *resonance.Monitor
	sink         EventSink
	drillTracker coach.Tracker
	settings     *config.Config
	shutdownOnce sync.Once
)

func gracefulShutdown() {
	shutdownOnce.Do(func() {
		if monitor != nil {
			monitor.Stop()
		}
		log.Close()
		tuiMu.Lock()
		p := tuiProgram
		tuiMu.Unlock()
		if p != nil {
			p.Quit()
		}
		os.Exit(0)
	})
}

func deviceLineText(dev *audio.DeviceInfo) string {
	name := "system default"
	suffix := ""
	if dev != nil {
		name = dev.Name
		if audio.IsBluetooth(dev.Name) {
			suffix = " (BT!)"
		}
	}
	return "mic: " + name + suffix
}

func statusLineText(tr transcriber.Transcriber) string {
	ac := settings.AlertConfig()
	speech := "loudness only"
	if tr != nil {
		speech = tr.Name()
		if lang := tr.GetLanguage(); lang != "" {
			speech += " (" + lang + ")"
		}
	}
	alerts := "alerts off"
	if ac.Enabled {
		alerts = "alerts " + string(ac.Style)
		if !ac.VoiceEnabled {
			alerts += " (silent)"
		}
	}
	return fmt.Sprintf("[%s | %s]", speech, alerts)
}

func startSession() {
	drillTracker.Reset()
	monitor.Start(context.Background())
	sink.SessionStart()
}

func stopSession() {
	monitor.Stop()
	sink.SessionStop()
}

func main() {
	config.LoadEnv()

	configFlag := flag.String("config", "", "Path to YAML settings file")
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	langFlag := flag.String("lang", "", "Language code for speech analysis (e.g., en, es, fr)")
	crashFlag := flag.Bool("crash", false, "Trigger synthetic panic for testing crash logging")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	testFlag := flag.Bool("test", false, "Test mode (headless, stdin-driven)")
	tuiFlag := flag.Bool("tui", true, "Run with terminal UI")
	flag.Parse()

	var err error
	settings, err = config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logArg := *logPathFlag
	if logArg == "" {
		logArg = settings.LogPath
	}
	logPath, err := log.ResolveDir(logArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)

	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *crashFlag {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}

	if *versionFlag {
		fmt.Printf("pulse %s\n", version)
		os.Exit(0)
	}

	if *doctorFlag {
		os.Exit(doctor.Run())
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}

	if *testFlag {
		runTestMode()
		return
	}

	lang := *langFlag
	if lang == "" {
		lang = settings.Language
	}

	// Speech analysis is optional: without a key the monitor runs on
	// loudness alone.
	var activeTranscriber transcriber.Transcriber
	if tr, err := transcriber.New(); err != nil {
		log.Warnf("speech analysis disabled: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: %v (running loudness-only)\n", err)
	} else {
		if lang != "" {
			tr.SetLanguage(lang)
		}
		activeTranscriber = tr
	}

	deviceName := *deviceFlag
	if deviceName == "" {
		deviceName = settings.Device
	}

	var selectedDevice *audio.DeviceInfo
	var captureDevice audio.CaptureDevice

	ctx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: no audio: %v (running without microphone)\n", err)
	} else {
		defer ctx.Close()

		if deviceName != "" {
			if devices, err := ctx.Devices(); err == nil {
				for i := range devices {
					if devices[i].Name == deviceName {
						selectedDevice = &devices[i]
						break
					}
				}
			}
			if selectedDevice == nil {
				fmt.Fprintf(os.Stderr, "Warning: device %q not found, using default\n", deviceName)
			}
		} else if *setupFlag {
			selectedDevice, err = audio.SelectDevice(ctx)
			if err != nil {
				log.Warnf("device selection failed: %v", err)
				fmt.Fprintf(os.Stderr, "Warning: device selection failed: %v\n", err)
				fmt.Fprintln(os.Stderr, "Falling back to default device")
				selectedDevice = nil
			}
		}

		captureDevice, err = ctx.NewCapture(selectedDevice, audio.CaptureConfig{
			SampleRate: audio.SampleRate,
			Channels:   audio.Channels,
		})
		if err != nil {
			log.Errorf("capture device init error: %v", err)
			fmt.Fprintf(os.Stderr, "Warning: cannot open microphone: %v\n", err)
			captureDevice = nil
		} else {
			defer captureDevice.Close()
		}
	}

	voice := speak.New()
	if !voice.Available() {
		log.Warn("no speech engine found; voice alerts disabled")
	}

	if *tuiFlag {
		sink = tuiSink{}
	} else {
		sink = consoleSink{}
	}

	alertConfig := settings.AlertConfig()
	monitor = resonance.NewMonitor(resonance.Options{
		Capture:     captureDevice,
		Transcriber: activeTranscriber,
		Synth:       tone.Synth{},
		Voice:       voice,
		Config:      func() resonance.AlertConfig { return alertConfig },
		Classifier:  settings.Classifier(),
		OnUpdate: func(u resonance.Update) {
			sink.ScoreUpdate(u.Score, u.State.String(), u.TiltCount)
		},
		OnTilt: func(count int) {
			if prompt, ok := drillTracker.OnTilt(count); ok {
				log.Info(prompt)
				sink.StatusLine(prompt)
			}
		},
		OnInfraction: sinkInfraction,
		OnUtterance:  func(text string) { sink.Utterance(text) },
		OnLevel:      func(level float64) { sink.AudioLevel(level) },
	})

	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		gracefulShutdown()
	}()

	if *tuiFlag {
		tuiMu.Lock()
		tuiProgram = NewTUIProgram()
		tuiMu.Unlock()

		onStartRequest = startSession
		onStopRequest = stopSession

		startSession()
		sink.DeviceLine(deviceLineText(selectedDevice))
		sink.StatusLine(statusLineText(activeTranscriber))

		if _, err := tuiProgram.Run(); err != nil {
			log.Errorf("TUI error: %v", err)
			os.Exit(1)
		}
		gracefulShutdown()
		return
	}

	// Headless: run until signalled.
	fmt.Println("pulse " + version + " " + statusLineText(activeTranscriber))
	fmt.Println(deviceLineText(selectedDevice))
	startSession()
	select {}
}

func sinkInfraction(reason string, penalty, score float64) {
	sink.Infraction(reason, penalty, score)
}

// consoleSink prints monitor events as plain lines for headless runs.
type consoleSink struct{}

func (consoleSink) SessionStart() { fmt.Println("session started") }
func (consoleSink) SessionStop()  { fmt.Println("session stopped") }

func (consoleSink) ScoreUpdate(score float64, state string, tiltCount int) {
	fmt.Printf("score=%+.1f state=%s tilts=%d\n", score, state, tiltCount)
}

func (consoleSink) AudioLevel(float64) {}

func (consoleSink) Utterance(text string) {
	fmt.Printf("heard: %s\n", text)
}

func (consoleSink) Infraction(reason string, penalty, _ float64) {
	fmt.Printf("infraction: %s (-%.1f)\n", reason, penalty)
}

func (consoleSink) StatusLine(text string) { fmt.Println(text) }
func (consoleSink) DeviceLine(text string) { fmt.Println(text) }
