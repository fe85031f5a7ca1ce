// Package names generates human-friendly unique project names.
package names

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

// MaxAttempts is how many word pairs are tried before falling back to a
// random suffix.
const MaxAttempts = 10

var adjectives = []string{
	"amber", "bold", "brave", "bright", "calm", "clever", "cosmic", "crisp",
	"daring", "eager", "fancy", "fierce", "gentle", "golden", "happy", "humble",
	"jolly", "keen", "lively", "lucky", "mellow", "mighty", "nimble", "noble",
	"proud", "quick", "quiet", "rapid", "shiny", "silent", "steady", "swift",
	"tidy", "vivid", "wild", "witty", "zesty",
}

var animals = []string{
	"badger", "beaver", "bison", "cobra", "condor", "coyote", "crane", "dingo",
	"falcon", "ferret", "gecko", "heron", "ibis", "jackal", "koala", "lemur",
	"lynx", "marmot", "moose", "narwhal", "ocelot", "orca", "otter", "panda",
	"pelican", "puffin", "quokka", "raven", "salmon", "stoat", "tapir", "toucan",
	"walrus", "wombat", "yak", "zebra",
}

// NameChecker reports whether a project name is already taken.
type NameChecker interface {
	NameExists(ctx context.Context, name string) (bool, error)
}

// Generator produces adjective-animal names that are not yet in use.
type Generator struct {
	checker NameChecker
	pick    func(n int) int
}

// NewGenerator creates a Generator backed by checker.
func NewGenerator(checker NameChecker) *Generator {
	return &Generator{checker: checker, pick: rand.IntN}
}

// Generate returns a name that checker does not know about.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	for i := 0; i < MaxAttempts; i++ {
		candidate := g.candidate()
		taken, err := g.checker.NameExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check name %s: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%s", g.candidate(), suffix), nil
}

func (g *Generator) candidate() string {
	return adjectives[g.pick(len(adjectives))] + "-" + animals[g.pick(len(animals))]
}
