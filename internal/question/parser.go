package question

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Layout selects the expected field order of a provider text block.
type Layout int

const (
	// LayoutTopicSupplied: the caller knows the topic, a Theme: line is optional.
	LayoutTopicSupplied Layout = iota
	// LayoutTopicInline: the provider picked the topic and must name it on a
	// leading Theme: line.
	LayoutTopicInline
)

// field values double as the canonical order of the grammar.
type field int

const (
	fieldNone field = iota
	fieldTheme
	fieldQuestion
	fieldOptionA
	fieldOptionB
	fieldOptionC
	fieldOptionD
	fieldAnswer
	fieldDifficulty

	// fieldStrayOption marks an E)..Z) line. It is text unless it follows D).
	fieldStrayOption
)

var fieldNames = map[field]string{
	fieldTheme:      "Theme",
	fieldQuestion:   "Question",
	fieldOptionA:    "A)",
	fieldOptionB:    "B)",
	fieldOptionC:    "C)",
	fieldOptionD:    "D)",
	fieldAnswer:     "Correct answer",
	fieldDifficulty: "Difficulty level",
}

var namedLabels = map[string]field{
	"theme":            fieldTheme,
	"question":         fieldQuestion,
	"correct answer":   fieldAnswer,
	"difficulty level": fieldDifficulty,
	"difficulty":       fieldDifficulty,
}

// multiline reports whether continuation lines extend the field value.
func (f field) multiline() bool {
	return f >= fieldQuestion && f <= fieldOptionD
}

// Parse extracts a Candidate from a provider text block. It either returns a
// fully populated candidate or an error wrapping ErrParse; it never returns a
// partially filled one.
//
// Grammar, one label per line, labels case-insensitive, in this order:
//
//	Theme: <topic>              (required only for LayoutTopicInline)
//	Question: <text>            (may continue on following lines)
//	A) <text> .. D) <text>      (strict A,B,C,D order, may continue)
//	Correct answer: <A|B|C|D>
//	Difficulty level: <text>
//
// Text before the first label and after the last field is ignored.
func Parse(raw string, layout Layout) (Candidate, error) {
	values := make(map[field]*strings.Builder, 8)
	current := fieldNone

	for _, line := range strings.Split(raw, "\n") {
		if current == fieldDifficulty && values[current].Len() > 0 {
			break
		}
		f, value := matchLabel(line)
		if f == fieldStrayOption {
			if current == fieldOptionD {
				return Candidate{}, parseErrorf("unexpected option label %s", value[:2])
			}
			f = fieldNone
		}
		if f != fieldNone {
			if f <= current {
				return Candidate{}, parseErrorf("label %q out of order after %q", fieldNames[f], fieldNames[current])
			}
			current = f
			values[f] = &strings.Builder{}
			appendValue(values[f], value)
			continue
		}
		if current == fieldNone {
			continue
		}
		b := values[current]
		if current.multiline() || b.Len() == 0 {
			appendValue(b, cleanLine(line))
		}
	}

	get := func(f field) string {
		if b, ok := values[f]; ok {
			return strings.TrimSpace(b.String())
		}
		return ""
	}

	var c Candidate
	if _, ok := values[fieldTheme]; ok || layout == LayoutTopicInline {
		topic, err := NormalizeTopic(get(fieldTheme))
		if err != nil {
			return Candidate{}, parseErrorf("missing theme")
		}
		c.Topic = topic
	}

	c.Prompt = get(fieldQuestion)
	if c.Prompt == "" {
		return Candidate{}, parseErrorf("missing question")
	}

	for i, label := range OptionLabels {
		text := get(fieldOptionA + field(i))
		if text == "" {
			return Candidate{}, parseErrorf("missing option %s", label)
		}
		c.Options[i] = Option{Label: label, Text: text}
	}

	correct, err := parseCorrectLabel(get(fieldAnswer))
	if err != nil {
		return Candidate{}, err
	}
	c.Correct = correct

	c.Difficulty = get(fieldDifficulty)
	if c.Difficulty == "" {
		return Candidate{}, parseErrorf("missing difficulty level")
	}
	return c, nil
}

// ValidateCandidate normalizes a hand-written candidate and checks it holds
// the same fields Parse guarantees. Errors wrap ErrParse.
func ValidateCandidate(c Candidate) (Candidate, error) {
	c.Prompt = strings.TrimSpace(c.Prompt)
	if c.Prompt == "" {
		return Candidate{}, parseErrorf("missing question")
	}
	for i, label := range OptionLabels {
		text := strings.TrimSpace(c.Options[i].Text)
		if text == "" {
			return Candidate{}, parseErrorf("missing option %s", label)
		}
		c.Options[i] = Option{Label: label, Text: text}
	}
	correct, err := parseCorrectLabel(c.Correct)
	if err != nil {
		return Candidate{}, err
	}
	c.Correct = correct
	c.Difficulty = strings.TrimSpace(c.Difficulty)
	if c.Difficulty == "" {
		return Candidate{}, parseErrorf("missing difficulty level")
	}
	return c, nil
}

// ValidCorrectLabel reports whether label is one of A..D.
func ValidCorrectLabel(label string) bool {
	for _, l := range OptionLabels {
		if label == l {
			return true
		}
	}
	return false
}

func appendValue(b *strings.Builder, v string) {
	if v == "" {
		return
	}
	if b.Len() > 0 {
		b.WriteByte('\n')
	}
	b.WriteString(v)
}

// cleanLine drops markdown emphasis and list decoration.
func cleanLine(line string) string {
	line = strings.ReplaceAll(line, "**", "")
	line = strings.TrimSpace(line)
	return strings.TrimSpace(strings.TrimLeft(line, "#>*-•"))
}

// matchLabel classifies one line. For fieldStrayOption the value is the whole
// cleaned line so it can be kept as text.
func matchLabel(line string) (field, string) {
	clean := cleanLine(line)
	if clean == "" {
		return fieldNone, ""
	}

	// Option labels: a single letter followed by ')'.
	if len(clean) >= 2 && clean[1] == ')' {
		r := unicode.ToUpper(rune(clean[0]))
		if r >= 'A' && r <= 'Z' {
			if r > 'D' {
				return fieldStrayOption, clean
			}
			return fieldOptionA + field(r-'A'), strings.TrimSpace(clean[2:])
		}
	}

	idx := strings.IndexByte(clean, ':')
	if idx <= 0 {
		return fieldNone, ""
	}
	head := strings.ToLower(strings.Join(strings.Fields(clean[:idx]), " "))
	if f, ok := namedLabels[head]; ok {
		return f, strings.TrimSpace(clean[idx+1:])
	}
	return fieldNone, ""
}

func parseCorrectLabel(v string) (string, error) {
	v = strings.TrimSpace(v)
	if len(v) > 7 && strings.EqualFold(v[:7], "option ") {
		v = strings.TrimSpace(v[7:])
	}
	if v == "" {
		return "", parseErrorf("missing correct answer")
	}
	r, size := utf8.DecodeRuneInString(v)
	if next, _ := utf8.DecodeRuneInString(v[size:]); size < len(v) && (unicode.IsLetter(next) || unicode.IsDigit(next)) {
		return "", parseErrorf("correct answer %q is not a single letter", v)
	}
	label := string(unicode.ToUpper(r))
	if !ValidCorrectLabel(label) {
		return "", parseErrorf("correct answer %q is not one of A-D", label)
	}
	return label, nil
}
