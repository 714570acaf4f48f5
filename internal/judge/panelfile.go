package judge

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type panelFile struct {
	Judges []Definition `toml:"judges"`
}

// LoadDefinitions reads a panel from a TOML file of [[judges]] tables.
func LoadDefinitions(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read judge panel: %w", err)
	}
	return ParseDefinitions(data)
}

// ParseDefinitions decodes and validates a TOML panel.
func ParseDefinitions(data []byte) ([]Definition, error) {
	var file panelFile
	if err := toml.Unmarshal(data, &file); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return nil, fmt.Errorf("parse judge panel at %d:%d: %w", row, col, err)
		}
		return nil, fmt.Errorf("parse judge panel: %w", err)
	}
	return compileAll(file.Judges)
}
