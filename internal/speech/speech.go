// Package speech covers both ends of the voice loop: turning recognized
// audio into text for the dispatcher and speaking replies back out loud.
package speech

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Recognizer turns a buffer of mono float32 samples into an utterance.
type Recognizer interface {
	Transcribe(ctx context.Context, samples []float32) (string, error)
}

// Espeak speaks replies by shelling out to espeak-ng.
type Espeak struct {
	Voice  string
	Binary string
}

// NewEspeak returns a speaker using the given voice. Empty voice falls back
// to espeak's default.
func NewEspeak(voice string) *Espeak {
	return &Espeak{Voice: voice, Binary: "espeak-ng"}
}

func (e *Espeak) Say(text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	args := []string{}
	if e.Voice != "" {
		args = append(args, "-v", e.Voice)
	}
	args = append(args, text)
	cmd := exec.Command(e.Binary, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("speech: espeak: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Silent discards speech. Used by the gateway and in tests.
type Silent struct{}

func (Silent) Say(string) error { return nil }
