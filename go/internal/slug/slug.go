package slug

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// Three-word kebab-case room slugs, e.g. "quiet-amber-falcon". Word lists
// are short on purpose; collisions against live rooms are handled by the
// caller retrying.

var adjectives = []string{
	"amber", "brave", "calm", "clever", "cosmic", "crisp", "eager",
	"fuzzy", "gentle", "golden", "happy", "humble", "jolly", "keen",
	"lively", "lucky", "mellow", "misty", "noble", "quiet", "rapid",
	"shiny", "silent", "sleepy", "snappy", "sturdy", "sunny", "swift",
	"tidy", "witty",
}

var colors = []string{
	"azure", "coral", "crimson", "emerald", "indigo", "ivory", "jade",
	"lilac", "maroon", "olive", "pearl", "rose", "ruby", "sable",
	"saffron", "scarlet", "silver", "teal", "umber", "violet",
}

var nouns = []string{
	"badger", "beacon", "canyon", "comet", "falcon", "fern", "galaxy",
	"glacier", "harbor", "heron", "lagoon", "lantern", "meadow", "nebula",
	"orchard", "otter", "pebble", "pine", "prairie", "raven", "reef",
	"river", "saddle", "sparrow", "summit", "thicket", "tiger", "valley",
	"willow", "wren",
}

// Generate returns a random three-word slug.
func Generate() (string, error) {
	a, err := pick(adjectives)
	if err != nil {
		return "", err
	}
	c, err := pick(colors)
	if err != nil {
		return "", err
	}
	n, err := pick(nouns)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{a, c, n}, "-"), nil
}

func pick(words []string) (string, error) {
	i, err := rand.Int(rand.Reader, big.NewInt(int64(len(words))))
	if err != nil {
		return "", err
	}
	return words[i.Int64()], nil
}
