// Package doctor runs interactive system diagnostics: audio capture, tone
// playback, speech synthesis, VAD, transcription credentials and the log
// directory.
package doctor

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pulse/audio"
	"pulse/log"
	"pulse/speak"
	"pulse/tone"
)

// Run executes the diagnostic checks and returns an exit code (0=all pass,
// 1=any fail).
func Run() int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("pulse doctor - interactive system diagnostics")
	fmt.Println("=============================================")

	allPass := true

	if !checkMicrophone() {
		allPass = false
	}
	if !checkVAD() {
		allPass = false
	}
	if !checkTonePlayback() {
		allPass = false
	}
	if !checkVoice() {
		allPass = false
	}
	if !checkAPIKey() {
		allPass = false
	}
	if !checkLogDir() {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func checkMicrophone() bool {
	fmt.Println()
	fmt.Println("[1/6] Microphone capture")

	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return false
	}
	defer ctx.Close()

	devices, err := ctx.Devices()
	if err != nil {
		fmt.Printf("  FAIL: cannot list devices: %v\n", err)
		return false
	}
	if len(devices) == 0 {
		fmt.Println("  FAIL: no capture devices found")
		return false
	}
	for _, d := range devices {
		tag := ""
		if audio.IsBluetooth(d.Name) {
			tag = " (bluetooth)"
		}
		fmt.Printf("  found device: %s%s\n", d.Name, tag)
	}

	device := &devices[0]
	capture, err := ctx.NewCapture(device, audio.CaptureConfig{
		SampleRate: audio.SampleRate,
		Channels:   audio.Channels,
	})
	if err != nil {
		fmt.Printf("  FAIL: cannot open %s: %v\n", device.Name, err)
		return false
	}
	defer capture.Close()

	meter := audio.NewLevelMeter()
	capture.SetCallback(func(data []byte, _ uint32) {
		meter.Process(data)
	})
	if err := capture.Start(); err != nil {
		fmt.Printf("  FAIL: cannot start capture: %v\n", err)
		return false
	}

	fmt.Print("  Speak normally for 3 seconds... ")
	time.Sleep(3 * time.Second)
	capture.Stop()
	capture.ClearCallback()

	level := meter.Drain()
	fmt.Printf("average level %.0f/255\n", level)
	if level == 0 {
		fmt.Println("  FAIL: no signal; check the input device or permissions")
		return false
	}
	fmt.Println("  PASS: microphone delivers audio")
	return true
}

func checkVAD() bool {
	fmt.Println()
	fmt.Println("[2/6] Voice activity detection")
	vad, err := audio.NewVAD()
	if err != nil {
		fmt.Printf("  FAIL: cannot initialize VAD: %v\n", err)
		fmt.Println("  (monitoring still works; loudness will not be speech-gated)")
		return false
	}
	_ = vad
	fmt.Println("  PASS: VAD initialized")
	return true
}

func checkTonePlayback() bool {
	fmt.Println()
	fmt.Println("[3/6] Tone playback")
	fmt.Println("  Playing a short chord...")

	synth := tone.Synth{}
	synth.Play(440, tone.Sine, 800*time.Millisecond, 0.2)
	time.Sleep(time.Second)

	return confirm("Did you hear a tone?")
}

func checkVoice() bool {
	fmt.Println()
	fmt.Println("[4/6] Speech synthesis")

	voice := speak.New()
	if !voice.Available() {
		fmt.Println("  FAIL: no speech engine found (install espeak-ng or spd-say)")
		return false
	}
	fmt.Printf("  engine: %s\n", voice.EngineName())
	voice.Say("Pulse diagnostics check.")
	time.Sleep(2 * time.Second)

	return confirm("Did you hear the spoken line?")
}

func checkAPIKey() bool {
	fmt.Println()
	fmt.Println("[5/6] Transcription credentials")
	if os.Getenv("DEEPGRAM_API_KEY") == "" {
		fmt.Println("  FAIL: DEEPGRAM_API_KEY not set; speech analysis will be loudness-only")
		return false
	}
	fmt.Println("  PASS: API key present")
	return true
}

func checkLogDir() bool {
	fmt.Println()
	fmt.Println("[6/6] Log directory")
	dir, err := log.ResolveDir("")
	if err != nil {
		fmt.Printf("  FAIL: cannot resolve log directory: %v\n", err)
		return false
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		fmt.Printf("  FAIL: cannot create %s: %v\n", dir, err)
		return false
	}
	probe := filepath.Join(dir, ".doctor_probe")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		fmt.Printf("  FAIL: %s not writable: %v\n", dir, err)
		return false
	}
	os.Remove(probe)
	fmt.Printf("  PASS: %s writable\n", dir)
	return true
}

func confirm(question string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("  %s [y/n]: ", question)
	answer, _ := reader.ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	if answer == "y" || answer == "yes" {
		fmt.Println("  PASS")
		return true
	}
	fmt.Println("  FAIL: not confirmed")
	return false
}
