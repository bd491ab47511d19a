package classifier

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/zeebo/xxh3"
)

// Vectorizer hashes word unigrams and bigrams into a fixed-width,
// L2-normalised sparse vector.
type Vectorizer struct {
	Dim int
}

// Feature is one non-zero entry of a sparse vector
type Feature struct {
	Index int
	Value float64
}

// Tokenize lowercases the message, collapses digit runs to '0' and splits
// on anything that is not a letter or digit.
func Tokenize(message string) []string {
	var b strings.Builder
	b.Grow(len(message))
	inDigits := false
	for _, r := range strings.ToLower(message) {
		switch {
		case unicode.IsDigit(r):
			if !inDigits {
				b.WriteByte('0')
			}
			inDigits = true
			continue
		case unicode.IsLetter(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
		inDigits = false
	}
	return strings.Fields(b.String())
}

// Transform returns the sparse feature vector for message
func (v Vectorizer) Transform(message string) []Feature {
	tokens := Tokenize(message)
	if len(tokens) == 0 || v.Dim <= 0 {
		return nil
	}

	counts := make(map[int]float64, len(tokens)*2)
	for i, tok := range tokens {
		counts[v.bucket("u:"+tok)]++
		if i > 0 {
			counts[v.bucket("b:"+tokens[i-1]+" "+tok)]++
		}
	}

	features := make([]Feature, 0, len(counts))
	for idx, c := range counts {
		features = append(features, Feature{Index: idx, Value: c})
	}
	sort.Slice(features, func(i, j int) bool { return features[i].Index < features[j].Index })

	var norm float64
	for _, f := range features {
		norm += f.Value * f.Value
	}
	norm = math.Sqrt(norm)
	for i := range features {
		features[i].Value /= norm
	}
	return features
}

func (v Vectorizer) bucket(s string) int {
	return int(xxh3.HashString(s) % uint64(v.Dim))
}
