package utils

import (
	"math/rand"
	"os"

	"github.com/Luismorlan/socialmux/utils/dotenv"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// ContainsString returns true iff the provided string slice hay contains string
// needle.
func ContainsString(hay []string, needle string) bool {
	for _, str := range hay {
		if str == needle {
			return true
		}
	}
	return false
}

// StringSetFromSlice converts a string slice into a membership set,
// deduplicating in the process.
func StringSetFromSlice(ss []string) map[string]bool {
	set := make(map[string]bool, len(ss))
	for _, s := range ss {
		set[s] = true
	}
	return set
}

// RandomAlphabetString generates a random lowercase string of length n, used
// for temp DB names in tests.
func RandomAlphabetString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}

func IsProdEnv() bool {
	return os.Getenv("SOCIALMUX_ENV") == dotenv.ProdEnv
}
