package question

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"unicode"
)

const maxTopicLength = 120

// NormalizeTopic trims, lower-cases and collapses inner whitespace.
func NormalizeTopic(name string) (string, error) {
	n := strings.ToLower(strings.Join(strings.Fields(name), " "))
	if n == "" {
		return "", ErrInvalidTopic
	}
	if len(n) > maxTopicLength {
		return "", ErrInvalidTopic
	}
	return n, nil
}

// PartitionFor derives the storage partition identifier for a normalized topic.
// The suffix keeps names that slug to the same string apart.
func PartitionFor(name string) string {
	var b strings.Builder
	b.WriteString("theme_")
	lastUnderscore := true
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
		if b.Len() >= 40 {
			break
		}
	}
	sum := sha256.Sum256([]byte(name))
	slug := strings.TrimSuffix(b.String(), "_")
	return slug + "_" + hex.EncodeToString(sum[:4])
}

// normalizeContent folds case and whitespace so that cosmetic differences
// do not defeat deduplication.
func normalizeContent(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	return strings.TrimRightFunc(s, func(r rune) bool {
		return r == '?' || r == '.' || r == '!' || unicode.IsSpace(r)
	})
}

// Fingerprint is the uniqueness key of a candidate inside its partition: the
// normalized prompt plus the set of normalized option texts. The correct label
// and difficulty are not part of it.
func Fingerprint(c Candidate) string {
	opts := make([]string, 0, len(c.Options))
	for _, o := range c.Options {
		opts = append(opts, normalizeContent(o.Text))
	}
	sort.Strings(opts)

	h := sha256.New()
	h.Write([]byte(normalizeContent(c.Prompt)))
	for _, o := range opts {
		h.Write([]byte{0x1f})
		h.Write([]byte(o))
	}
	return hex.EncodeToString(h.Sum(nil))
}
