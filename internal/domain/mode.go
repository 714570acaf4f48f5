package domain

import "strings"

// GameMode selects the theme of a match and the rhyme table it draws from
type GameMode string

const (
	ModeBattle   GameMode = "BATTLE"
	ModeKindness GameMode = "KINDNESS"
)

// String returns the string representation of the mode
func (m GameMode) String() string {
	return string(m)
}

// Valid returns true for known modes
func (m GameMode) Valid() bool {
	return m == ModeBattle || m == ModeKindness
}

// ParseGameMode accepts a mode name in any case; empty selects battle
func ParseGameMode(value string) (GameMode, error) {
	value = strings.ToUpper(strings.TrimSpace(value))
	if value == "" {
		return ModeBattle, nil
	}
	mode := GameMode(value)
	if !mode.Valid() {
		return "", ErrUnknownMode
	}
	return mode, nil
}
