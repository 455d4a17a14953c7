package util

import (
	"fmt"
	"os"
	"strings"

	"github.com/zeu5/tablesim-decider/types"
	"gopkg.in/yaml.v3"
)

// WriteToFile writes the strings to file separated by new lines
func WriteToFile(savePath string, content ...string) error {
	return os.WriteFile(savePath, []byte(strings.Join(content, "\n")+"\n"), 0644)
}

// AppendToFile adds the strings to the end of the file, one per line,
// creating the file when missing
func AppendToFile(savePath string, content ...string) (err error) {
	f, err := os.OpenFile(savePath, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", savePath, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = f.WriteString(strings.Join(content, "\n") + "\n")
	return err
}

// ReadStates reads a YAML or JSON list of world states
func ReadStates(path string) ([]*types.WorldState, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	states := make([]*types.WorldState, 0)
	if err := yaml.Unmarshal(bs, &states); err != nil {
		return nil, fmt.Errorf("parsing states %s: %w", path, err)
	}
	return states, nil
}

// ReadState reads a single YAML or JSON world state
func ReadState(path string) (*types.WorldState, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	state := &types.WorldState{}
	if err := yaml.Unmarshal(bs, state); err != nil {
		return nil, fmt.Errorf("parsing state %s: %w", path, err)
	}
	return state, nil
}
