// Package handle generates pseudonymous user handles.
//
// A handle looks like "quiet-wanderer-0042": an adjective and a noun from
// two small fixed word lists, plus a random four-digit number. Handles are
// the only identity other users see, so the vocabulary is intentionally
// calm and anonymous-feeling.
//
// There is no uniqueness retry here. With 7×7 word pairs and 10000 numbers
// the space holds 490k handles; the unique constraint in the store catches
// the rare collision, which surfaces as a conflict at account creation.
package handle

import (
	"fmt"
	"math/rand/v2"
)

var adjectives = []string{"quiet", "silent", "peaceful", "calm", "gentle", "soft", "still"}

var nouns = []string{"wanderer", "dreamer", "observer", "soul", "spirit", "light", "shadow"}

// New returns a freshly generated handle.
func New() string {
	adjective := adjectives[rand.IntN(len(adjectives))]
	noun := nouns[rand.IntN(len(nouns))]
	number := rand.IntN(10000)
	return fmt.Sprintf("%s-%s-%04d", adjective, noun, number)
}
