package jsonrepair

import "fmt"

// State is the scanner state.
type State int

const (
	// Outside: between tokens, not inside a string literal.
	Outside State = iota
	// InString: inside a string literal.
	InString
	// Escaped: the previous byte was a backslash inside a string.
	Escaped
)

func (s State) String() string {
	switch s {
	case Outside:
		return "outside"
	case InString:
		return "in_string"
	case Escaped:
		return "escaped"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// scanner is a single left-to-right pass over model output. It rewrites raw
// control characters found inside strings into escapes and, outside strings,
// tracks bracket nesting plus the positions needed to cut an unfinished
// member when the input is truncated.
type scanner struct {
	state State
	out   []byte

	// closers holds the expected closing bracket per open level.
	closers []byte
	// seps holds, per open level, the out index of the last '{', '[' or ','.
	seps []int
	// expectKey is true when the next string at the current object level is a key.
	expectKey bool

	lastColon   int
	strStart    int
	strIsKey    bool
	lastWasKey  bool
	sawTopLevel bool
}

func newScanner(capacity int) *scanner {
	return &scanner{out: make([]byte, 0, capacity+16), lastColon: -1, strStart: -1}
}

// Step feeds one byte and returns the new state.
func (s *scanner) Step(c byte) State {
	switch s.state {
	case Outside:
		s.stepOutside(c)
	case InString:
		s.stepInString(c)
	case Escaped:
		s.out = append(s.out, c)
		s.state = InString
	}
	return s.state
}

func (s *scanner) stepOutside(c byte) {
	switch c {
	case '"':
		s.state = InString
		s.strStart = len(s.out)
		s.strIsKey = s.inObject() && s.expectKey
		s.lastWasKey = false
	case '{', '[':
		closer := byte('}')
		if c == '[' {
			closer = ']'
		}
		s.closers = append(s.closers, closer)
		s.seps = append(s.seps, len(s.out))
		s.expectKey = c == '{'
		s.lastWasKey = false
		s.sawTopLevel = true
	case '}', ']':
		if n := len(s.closers); n > 0 && s.closers[n-1] == c {
			s.closers = s.closers[:n-1]
			s.seps = s.seps[:n-1]
		}
		s.expectKey = false
		s.lastWasKey = false
	case ':':
		s.lastColon = len(s.out)
		s.expectKey = false
		s.lastWasKey = false
	case ',':
		if n := len(s.seps); n > 0 {
			s.seps[n-1] = len(s.out)
		}
		s.expectKey = s.inObject()
		s.lastWasKey = false
	case ' ', '\t', '\n', '\r':
	default:
		s.lastWasKey = false
	}
	s.out = append(s.out, c)
}

func (s *scanner) stepInString(c byte) {
	switch {
	case c == '\\':
		s.state = Escaped
		s.out = append(s.out, c)
	case c == '"':
		s.state = Outside
		s.lastWasKey = s.strIsKey
		if s.strIsKey {
			s.expectKey = false
		}
		s.out = append(s.out, c)
	case c < 0x20:
		s.out = append(s.out, escapeControl(c)...)
	default:
		s.out = append(s.out, c)
	}
}

func (s *scanner) inObject() bool {
	n := len(s.closers)
	return n > 0 && s.closers[n-1] == '}'
}

// Depth is the number of unclosed brackets.
func (s *scanner) Depth() int { return len(s.closers) }

func escapeControl(c byte) []byte {
	switch c {
	case '\n':
		return []byte(`\n`)
	case '\t':
		return []byte(`\t`)
	case '\r':
		return []byte(`\r`)
	case '\b':
		return []byte(`\b`)
	case '\f':
		return []byte(`\f`)
	default:
		return []byte(fmt.Sprintf(`\u%04x`, c))
	}
}

// scan runs the scanner over raw, stopping once the first top-level value
// is closed so trailing prose is ignored.
func scan(raw string) *scanner {
	s := newScanner(len(raw))
	for i := 0; i < len(raw); i++ {
		s.Step(raw[i])
		if s.sawTopLevel && s.state == Outside && len(s.closers) == 0 {
			break
		}
	}
	return s
}

// Sanitize rewrites raw control characters inside string literals into JSON
// escapes and leaves everything else untouched.
func Sanitize(raw string) []byte {
	return scan(raw).out
}
