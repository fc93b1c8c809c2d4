package responder

import (
	"fmt"
	"math/rand"
	"time"

	"intent-chatter/internal/intents"
)

// UnknownTagError means a predicted tag has no intent in the corpus, i.e. the
// model and the corpus disagree.
type UnknownTagError struct {
	Tag string
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("unknown intent tag %q", e.Tag)
}

// Selector picks a canned response for a tag.
type Selector struct {
	corpus *intents.Corpus
	rng    *rand.Rand
}

// NewSource returns a seeded source. Seed 0 seeds from the clock.
func NewSource(seed int64) rand.Source {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.NewSource(seed)
}

func New(corpus *intents.Corpus, src rand.Source) *Selector {
	if src == nil {
		src = NewSource(0)
	}
	return &Selector{corpus: corpus, rng: rand.New(src)}
}

// Select draws one response of the tag's intent uniformly at random.
func (s *Selector) Select(tag string) (string, error) {
	in, ok := s.corpus.Lookup(tag)
	if !ok {
		return "", &UnknownTagError{Tag: tag}
	}
	return in.Responses[s.rng.Intn(len(in.Responses))], nil
}
