package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// clientState is what survives between invocations: the session token
// and the last selected pair.
type clientState struct {
	Token          string `json:"token,omitempty"`
	SelectedSymbol string `json:"selected_symbol,omitempty"`
	SelectedTF     string `json:"selected_tf,omitempty"`
}

func statePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "tradevision", "state.json"), nil
}

func loadState() (*clientState, error) {
	path, err := statePath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &clientState{}, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	var st clientState
	if err := json.Unmarshal(b, &st); err != nil {
		// A corrupt state file should not brick the CLI.
		return &clientState{}, nil
	}
	return &st, nil
}

func saveState(st *clientState) error {
	path, err := statePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}
