package controller

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type moveFile struct {
	Moves Moves `yaml:"moves"`
}

// LoadMoves decodes and validates a YAML action table of the form
//
//	moves:
//	  - {name: neutral, stick_x: 0.5, stick_y: 0.5}
//	  - {name: jab, button: A, stick_x: 0.5, stick_y: 0.5}
func LoadMoves(r io.Reader) (Moves, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var mf moveFile
	if err := dec.Decode(&mf); err != nil {
		return nil, fmt.Errorf("decode move table: %w", err)
	}
	if err := mf.Moves.Validate(); err != nil {
		return nil, err
	}
	return mf.Moves, nil
}

// LoadMovesFile reads an action table from path.
func LoadMovesFile(path string) (Moves, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open move table: %w", err)
	}
	defer f.Close()

	ms, err := LoadMoves(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ms, nil
}
