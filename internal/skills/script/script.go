// Package script loads user-defined skills written in Lua. A script declares
// its reference phrases and a handle(text) function:
//
//	phrases = { "turn on the lamp", "lights on" }
//	threshold = 0.7        -- optional, defaults to 0.7
//	function handle(text)
//	    return "lamp is on"
//	end
//
// handle may instead return a table { error = "...", suggestion = "..." } to
// produce a spoken error. Scripts can use os.getenv and os.time.
package script

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/murmurhq/murmur/internal/skill"
)

const defaultThreshold = 0.7

// Skill runs one Lua script as an ordinary conversational skill. Each turn
// executes the script in a fresh interpreter state, so scripts are stateless
// between turns.
type Skill struct {
	skill.Core
	name string
	path string
}

// Load reads the script once to pick up phrases and threshold.
func Load(path string) (*Skill, error) {
	ls, err := open(path)
	if err != nil {
		return nil, err
	}
	defer ls.Close()

	threshold := defaultThreshold
	if v := ls.GetGlobal("threshold"); v.Type() == lua.LTNumber {
		threshold = float64(v.(lua.LNumber))
	}
	if threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("script %s: threshold %v out of (0,1]", path, threshold)
	}

	s := &Skill{
		Core: skill.NewCore(threshold),
		name: strings.TrimSuffix(filepath.Base(path), ".lua"),
		path: path,
	}

	phrases := ls.GetGlobal("phrases")
	if tbl, ok := phrases.(*lua.LTable); ok {
		tbl.ForEach(func(_, v lua.LValue) {
			if v.Type() == lua.LTString {
				s.Register(v.String())
			}
		})
	}

	if fn := ls.GetGlobal("handle"); fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("script %s: must define function handle(text)", path)
	}
	return s, nil
}

// LoadDir loads every *.lua file in dir, sorted by name. A missing dir is
// not an error: it loads nothing.
func LoadDir(dir string) ([]*Skill, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("script dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var skills []*Skill
	for _, name := range names {
		s, err := Load(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		skills = append(skills, s)
	}
	return skills, nil
}

// Name is the script filename without extension.
func (s *Skill) Name() string { return s.name }

func (s *Skill) Step(ctx context.Context, u skill.Utterance, sink *skill.Sink) error {
	uid, err := s.UID()
	if err != nil {
		return err
	}
	if !s.Activated(u.Form) {
		sink.Emit(skill.NotActivated(uid, skill.CategoryOnline))
		return nil
	}

	res, err := s.handle(u.Raw)
	if err != nil {
		return fmt.Errorf("script %s: %w", s.name, err)
	}
	res.UID = uid
	sink.Emit(res)
	return nil
}

// Reset is a no-op: scripts run stateless.
func (s *Skill) Reset() {}

func (s *Skill) handle(text string) (skill.Result, error) {
	ls, err := open(s.path)
	if err != nil {
		return skill.Result{}, err
	}
	defer ls.Close()

	fn := ls.GetGlobal("handle")
	ls.Push(fn)
	ls.Push(lua.LString(text))
	if err := ls.PCall(1, 1, nil); err != nil {
		return skill.Result{}, fmt.Errorf("handle(): %w", err)
	}
	ret := ls.Get(-1)
	ls.Pop(1)

	switch ret.Type() {
	case lua.LTString:
		return skill.Result{
			Kind:     skill.KindText,
			Category: skill.CategoryOnline,
			Payload:  ret.String(),
		}, nil
	case lua.LTTable:
		tbl := ret.(*lua.LTable)
		res := skill.Result{Kind: skill.KindError, Category: skill.CategoryOnline}
		tbl.ForEach(func(k, v lua.LValue) {
			switch k.String() {
			case "error":
				res.Err = v.String()
			case "suggestion":
				res.Suggestion = v.String()
			}
		})
		if res.Err == "" {
			return skill.Result{}, fmt.Errorf("handle() table must carry an error field")
		}
		return res, nil
	default:
		return skill.Result{}, fmt.Errorf("handle() must return string or table, got %s", ret.Type().String())
	}
}

func open(path string) (*lua.LState, error) {
	ls := lua.NewState()
	ls.PreloadModule("os", osModuleLoader)

	absPath, err := filepath.Abs(path)
	if err != nil {
		ls.Close()
		return nil, fmt.Errorf("script path: %w", err)
	}
	if err := ls.DoFile(absPath); err != nil {
		ls.Close()
		return nil, fmt.Errorf("load script: %w", err)
	}
	return ls, nil
}

// osModuleLoader exposes a minimal os module to scripts: getenv and time.
func osModuleLoader(ls *lua.LState) int {
	mod := ls.NewTable()
	ls.SetField(mod, "getenv", ls.NewFunction(func(l *lua.LState) int {
		l.Push(lua.LString(os.Getenv(l.CheckString(1))))
		return 1
	}))
	ls.SetField(mod, "time", ls.NewFunction(func(l *lua.LState) int {
		l.Push(lua.LNumber(time.Now().Unix()))
		return 1
	}))
	ls.Push(mod)
	return 1
}

var _ skill.Skill = (*Skill)(nil)
