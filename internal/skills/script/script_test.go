package script

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/murmurhq/murmur/internal/similarity"
	"github.com/murmurhq/murmur/internal/skill"
)

const lampScript = `
phrases = { "turn on the lamp" }
threshold = 0.7
function handle(text)
    return "lamp is on"
end
`

const failingScript = `
phrases = { "check the printer" }
function handle(text)
    return { error = "printer unreachable", suggestion = "check the cable" }
end
`

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func step(t *testing.T, s *Skill, raw string) []skill.Result {
	t.Helper()
	o := similarity.NewBag()
	s.Bind(o)
	sink := skill.NewSink(nil)
	if err := s.Step(context.Background(), skill.Utterance{Raw: raw, Form: o.Convert(raw)}, sink); err != nil {
		t.Fatal(err)
	}
	return sink.Drain()
}

func TestLoadAndHandle(t *testing.T) {
	path := writeScript(t, t.TempDir(), "lamp.lua", lampScript)
	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	s.Assign("sk_lamp")
	if s.Name() != "lamp" {
		t.Errorf("Name = %q", s.Name())
	}
	if s.Threshold() != 0.7 {
		t.Errorf("Threshold = %v", s.Threshold())
	}

	out := step(t, s, "turn on the lamp")
	if len(out) != 1 || out[0].Kind != skill.KindText || out[0].Payload != "lamp is on" {
		t.Fatalf("results = %+v", out)
	}
	if out[0].Category != skill.CategoryOnline {
		t.Errorf("category = %v", out[0].Category)
	}
}

func TestScriptErrorTable(t *testing.T) {
	path := writeScript(t, t.TempDir(), "printer.lua", failingScript)
	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	s.Assign("sk_printer")

	out := step(t, s, "check the printer")
	if out[0].Kind != skill.KindError || out[0].Err != "printer unreachable" {
		t.Fatalf("results = %+v", out)
	}
	if out[0].Suggestion != "check the cable" {
		t.Errorf("suggestion = %q", out[0].Suggestion)
	}
}

func TestLoadRejectsScriptWithoutHandle(t *testing.T) {
	path := writeScript(t, t.TempDir(), "broken.lua", `phrases = { "x" }`)
	if _, err := Load(path); err == nil {
		t.Error("Load accepted a script without handle()")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "b.lua", lampScript)
	writeScript(t, dir, "a.lua", failingScript)
	writeScript(t, dir, "notes.txt", "ignored")

	skills, err := LoadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(skills) != 2 || skills[0].Name() != "a" || skills[1].Name() != "b" {
		t.Fatalf("LoadDir order = %v", skills)
	}
}

func TestLoadDirMissingIsEmpty(t *testing.T) {
	skills, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	if err != nil || skills != nil {
		t.Errorf("missing dir: %v, %v", skills, err)
	}
}
