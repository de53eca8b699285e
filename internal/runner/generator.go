package runner

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/linkmeAman/twitter-to-kafka/internal/twitter"
)

// Words is the filler dictionary mock tweets are built from.
var Words = [...]string{
	"lorem", "ipsum", "dolor", "sit", "amet", "consectetur",
	"adipiscing", "elit", "curabitur", "vel", "hendrerit", "libero",
}

// Generator builds random statuses. It is safe for concurrent use.
type Generator struct {
	keywords  []string
	minLength int
	maxLength int
	now       func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// GeneratorOption customises a Generator.
type GeneratorOption func(*Generator)

// WithClock replaces time.Now as the source of created_at.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

// NewGenerator returns a generator for tweets of minLength to maxLength
// filler words. A zero seed picks a random one; any other seed makes the
// output reproducible.
func NewGenerator(keywords []string, minLength, maxLength int, seed uint64, opts ...GeneratorOption) (*Generator, error) {
	if len(keywords) == 0 {
		return nil, ErrNoKeywords
	}
	for i, k := range keywords {
		if strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("%w: index %d", ErrBlankKeyword, i)
		}
	}
	if minLength < 0 || maxLength < minLength {
		return nil, fmt.Errorf("%w: min=%d max=%d", ErrInvalidLength, minLength, maxLength)
	}
	if seed == 0 {
		seed = rand.Uint64()
	}

	g := &Generator{
		keywords:  append([]string(nil), keywords...),
		minLength: minLength,
		maxLength: maxLength,
		now:       time.Now,
		rnd:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Content returns a random tweet body.
func (g *Generator) Content() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.content()
}

// Status returns a fresh random status stamped with the current time.
func (g *Generator) Status() twitter.Status {
	g.mu.Lock()
	id := g.rnd.Int64N(math.MaxInt64)
	text := g.content()
	userID := g.rnd.Int64N(math.MaxInt64)
	g.mu.Unlock()

	return Assemble(g.now(), id, text, userID)
}

// content picks n in [minLength, maxLength] and writes n filler words with
// one keyword right after word n/2. For n == 0 the body is a lone keyword.
func (g *Generator) content() string {
	n := g.minLength + g.rnd.IntN(g.maxLength-g.minLength+1)
	if n == 0 {
		return strings.TrimSpace(g.keyword())
	}

	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString(Words[g.rnd.IntN(len(Words))])
		b.WriteByte(' ')
		if i == n/2 {
			b.WriteString(g.keyword())
			b.WriteByte(' ')
		}
	}
	return strings.TrimSpace(b.String())
}

func (g *Generator) keyword() string {
	return g.keywords[g.rnd.IntN(len(g.keywords))]
}

// Assemble builds a status from its parts. created_at is always rendered
// in UTC so the zone abbreviation round-trips through time.Parse.
func Assemble(createdAt time.Time, id int64, text string, userID int64) twitter.Status {
	return twitter.Status{
		CreatedAt: createdAt.UTC().Format(twitter.CreatedAtLayout),
		ID:        id,
		Text:      text,
		User:      twitter.User{ID: userID},
	}
}
