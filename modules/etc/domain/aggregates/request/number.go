package request

import (
	"crypto/rand"
	"regexp"
)

const (
	numberPrefix   = "RQ-"
	numberLength   = 5
	numberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var numberPattern = regexp.MustCompile(`^RQ-[A-Z0-9]{5}$`)

// GenerateNumber produces a candidate human-readable request number. Collisions
// are possible; callers check uniqueness and retry.
func GenerateNumber() string {
	buf := make([]byte, numberLength)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	out := make([]byte, numberLength)
	for i, b := range buf {
		out[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return numberPrefix + string(out)
}

func ValidNumber(number string) bool {
	return numberPattern.MatchString(number)
}
