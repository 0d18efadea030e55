package simulator

import (
	"strconv"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
)

// Generator produces fake players and scores from a seeded faker.
type Generator struct {
	faker *gofakeit.Faker
}

// NewGenerator returns a Generator. A zero seed is random.
func NewGenerator(seed uint64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// Players returns n players with unique emails and pseudos.
func (g *Generator) Players(n int) []Player {
	players := make([]Player, n)
	for i := range players {
		suffix := strconv.Itoa(i)
		players[i] = Player{
			Email:    "sim" + suffix + "." + strings.ToLower(g.faker.Email()),
			Password: g.faker.Password(true, true, true, false, false, passwordLength),
			Pseudo:   sanitizePseudo(g.faker.Username()) + "_" + suffix,
		}
	}
	return players
}

// Score returns a score rounded to two decimals.
func (g *Generator) Score() float64 {
	v := g.faker.Float64Range(minScore, maxScore)
	return float64(int64(v*100)) / 100
}

func sanitizePseudo(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '/' || r == ' ' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return "player"
	}
	return s
}
