package app

import (
	"math/rand/v2"
	"strings"
	"sync"

	"raisebar/internal/domain"
)

// BattleGroups are the rhyme groups drawn in battle mode
var BattleGroups = [][]string{
	{"Crash", "Trash", "Bash", "Flash"},
	{"Flow", "Show", "Glow", "Slow"},
	{"Night", "Fight", "Light", "Sight"},
	{"Beat", "Street", "Heat", "Feet"},
	{"Code", "Mode", "Load", "Road"},
	{"Hype", "Type", "Swipe", "Pipe"},
	{"Skill", "Kill", "Drill", "Chill"},
}

// KindnessGroups are the rhyme groups drawn in kindness mode
var KindnessGroups = [][]string{
	{"Heart", "Start", "Smart", "Art"},
	{"Care", "Share", "Fair", "There"},
	{"Love", "Dove", "Above", "Glove"},
	{"Friend", "Mend", "Tend", "Send"},
	{"Smile", "Style", "While", "Dial"},
	{"Kind", "Mind", "Find", "Bind"},
}

// RhymeBook draws a random rhyme group for a mode
type RhymeBook struct {
	groups map[domain.GameMode][]domain.RoundWords

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRhymeBook creates a book over the built-in groups. A nil rng uses a
// randomly seeded generator.
func NewRhymeBook(rng *rand.Rand) *RhymeBook {
	book := &RhymeBook{
		groups: make(map[domain.GameMode][]domain.RoundWords, 2),
		rng:    rng,
	}
	if book.rng == nil {
		book.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	book.groups[domain.ModeBattle] = mustGroups(BattleGroups)
	book.groups[domain.ModeKindness] = mustGroups(KindnessGroups)
	return book
}

// Draw returns a random group for mode
func (b *RhymeBook) Draw(mode domain.GameMode) (domain.RoundWords, error) {
	if !mode.Valid() {
		return domain.RoundWords{}, domain.ErrUnknownMode
	}
	groups := b.groups[mode]
	if len(groups) == 0 {
		return domain.RoundWords{}, domain.ErrNoRhymeGroups
	}
	b.mu.Lock()
	i := b.rng.IntN(len(groups))
	b.mu.Unlock()
	return groups[i], nil
}

// WithGroups returns a book that draws mode's words from custom groups
// instead of the built-in ones. Other modes keep their groups.
func (b *RhymeBook) WithGroups(mode domain.GameMode, custom [][]string) (*RhymeBook, error) {
	if !mode.Valid() {
		return nil, domain.ErrUnknownMode
	}
	if len(custom) == 0 {
		return nil, domain.ErrNoRhymeGroups
	}
	groups, err := parseGroups(custom)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	seed := b.rng.Uint64()
	b.mu.Unlock()

	out := &RhymeBook{
		groups: make(map[domain.GameMode][]domain.RoundWords, len(b.groups)),
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	for m, g := range b.groups {
		out.groups[m] = g
	}
	out.groups[mode] = groups
	return out, nil
}

// Groups returns the words of every group for mode
func (b *RhymeBook) Groups(mode domain.GameMode) [][]string {
	groups := b.groups[mode]
	out := make([][]string, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.Words())
	}
	return out
}

func parseGroups(raw [][]string) ([]domain.RoundWords, error) {
	out := make([]domain.RoundWords, 0, len(raw))
	for _, group := range raw {
		words := make([]string, len(group))
		for i, w := range group {
			words[i] = strings.TrimSpace(w)
		}
		rw, err := domain.NewRoundWords(words)
		if err != nil {
			return nil, err
		}
		out = append(out, rw)
	}
	return out, nil
}

func mustGroups(raw [][]string) []domain.RoundWords {
	groups, err := parseGroups(raw)
	if err != nil {
		panic(err)
	}
	return groups
}
