package framedata

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cartridge/fighter/internal/gamestate"
)

//go:embed default.yaml
var defaultTable []byte

type entryFile struct {
	Frames  int   `yaml:"frames"`
	Hitbox  []int `yaml:"hitbox"`
	Special bool  `yaml:"special"`
}

type characterFile struct {
	MaxJumps int                  `yaml:"max_jumps"`
	Actions  map[string]entryFile `yaml:"actions"`
}

type tableFile struct {
	DeadActions        []string                 `yaml:"dead_actions"`
	SpecialFallActions []string                 `yaml:"special_fall_actions"`
	Common             map[string]entryFile     `yaml:"common"`
	Characters         map[string]characterFile `yaml:"characters"`
}

// Default loads the embedded table.
func Default() (*Data, error) {
	return Load(bytes.NewReader(defaultTable))
}

// LoadFile loads and verifies a table from a YAML file.
func LoadFile(path string) (*Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame data: %w", err)
	}
	defer f.Close()

	d, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Load decodes a YAML table and verifies that every character resolves every
// enumerated action. A table that loads is complete.
func Load(r io.Reader) (*Data, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var tf tableFile
	if err := dec.Decode(&tf); err != nil {
		return nil, fmt.Errorf("decode frame data: %w", err)
	}

	d := &Data{
		dead:        make(map[gamestate.Action]bool),
		specialFall: make(map[gamestate.Action]bool),
		characters:  make(map[gamestate.Character]*character),
	}

	var errs []error
	for _, name := range tf.DeadActions {
		a, err := gamestate.ParseAction(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("dead_actions: %w", err))
			continue
		}
		d.dead[a] = true
	}
	for _, name := range tf.SpecialFallActions {
		a, err := gamestate.ParseAction(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("special_fall_actions: %w", err))
			continue
		}
		d.specialFall[a] = true
	}
	if len(d.dead) == 0 {
		errs = append(errs, errors.New("dead_actions must not be empty"))
	}

	common, err := compileEntries("common", tf.Common)
	if err != nil {
		errs = append(errs, err)
	}

	if len(tf.Characters) == 0 {
		errs = append(errs, errors.New("no characters defined"))
	}
	for name, cf := range tf.Characters {
		c, err := gamestate.ParseCharacter(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("characters: %w", err))
			continue
		}
		if cf.MaxJumps <= 0 {
			errs = append(errs, fmt.Errorf("%s: max_jumps must be positive, got %d", c, cf.MaxJumps))
		}
		own, err := compileEntries(string(c), cf.Actions)
		if err != nil {
			errs = append(errs, err)
		}

		ch := &character{maxJumps: cf.MaxJumps, actions: make(map[gamestate.Action]entry)}
		for _, a := range gamestate.Actions() {
			if e, ok := own[a]; ok {
				ch.actions[a] = e
			} else if e, ok := common[a]; ok {
				ch.actions[a] = e
			} else {
				errs = append(errs, fmt.Errorf("%s: no frame data for %s", c, a))
			}
		}
		d.characters[c] = ch
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid frame data: %w", err)
	}
	return d, nil
}

func compileEntries(section string, in map[string]entryFile) (map[gamestate.Action]entry, error) {
	out := make(map[gamestate.Action]entry, len(in))
	var errs []error
	for name, ef := range in {
		a, err := gamestate.ParseAction(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", section, err))
			continue
		}
		e, err := compileEntry(ef)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", section, name, err))
			continue
		}
		out[a] = e
	}
	return out, errors.Join(errs...)
}

func compileEntry(ef entryFile) (entry, error) {
	if ef.Frames <= 0 {
		return entry{}, fmt.Errorf("frames must be positive, got %d", ef.Frames)
	}
	e := entry{frames: ef.Frames, special: ef.Special}
	switch len(ef.Hitbox) {
	case 0:
	case 2:
		first, last := ef.Hitbox[0], ef.Hitbox[1]
		if first < 1 || last < first || last > ef.Frames {
			return entry{}, fmt.Errorf("hitbox [%d, %d] outside 1..%d", first, last, ef.Frames)
		}
		e.attack = true
		e.firstActive = first
		e.lastActive = last
	default:
		return entry{}, fmt.Errorf("hitbox must be [first, last], got %v", ef.Hitbox)
	}
	return e, nil
}
