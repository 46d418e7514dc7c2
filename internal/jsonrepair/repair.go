package jsonrepair

import (
	"bytes"
	"encoding/json"
)

// Repair scans raw and closes whatever a truncated response left open. At
// end of input:
//
//   - a lone trailing backslash is dropped;
//   - an unfinished value string is closed, keeping the partial text;
//   - an unfinished key string is cut back to the previous separator;
//   - a dangling separator, `"key":` or partial literal is trimmed;
//   - the remaining open brackets are closed innermost first.
func Repair(raw string) []byte {
	s := scan(raw)
	return s.finish()
}

func (s *scanner) finish() []byte {
	out := s.out
	state := s.state
	if state == Escaped {
		out = out[:len(out)-1]
		state = InString
	}
	if state == InString {
		out = trimPartialUnicode(out)
		if s.strIsKey {
			out = s.cutMember(out)
		} else {
			out = append(out, '"')
		}
	} else if s.lastWasKey {
		out = s.cutMember(out)
	}
	out = s.trimDangling(out)
	for i := len(s.closers) - 1; i >= 0; i-- {
		out = append(out, s.closers[i])
	}
	return out
}

// cutMember drops everything after the innermost level's last separator.
// A comma separator is dropped too; an opening bracket is kept.
func (s *scanner) cutMember(out []byte) []byte {
	n := len(s.seps)
	if n == 0 {
		return out
	}
	sep := s.seps[n-1]
	if sep >= len(out) {
		return out
	}
	if out[sep] == ',' {
		return out[:sep]
	}
	return out[:sep+1]
}

func (s *scanner) trimDangling(out []byte) []byte {
	for {
		out = bytes.TrimRight(out, " \t\r\n")
		if len(out) == 0 || len(s.closers) == 0 {
			return out
		}
		switch last := out[len(out)-1]; {
		case last == ',':
			out = out[:len(out)-1]
		case last == ':':
			out = s.cutMember(out)
		case isLiteralByte(last):
			i := len(out)
			for i > 0 && isLiteralByte(out[i-1]) {
				i--
			}
			if json.Valid(out[i:]) {
				return out
			}
			out = out[:i]
		default:
			return out
		}
	}
}

func isLiteralByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '.' || c == '+' || c == '-'
}

// trimPartialUnicode removes a `\u` escape cut short by truncation.
func trimPartialUnicode(b []byte) []byte {
	for digits := 0; digits < 4; digits++ {
		i := len(b) - digits - 2
		if i < 0 {
			break
		}
		if b[i] != '\\' || b[i+1] != 'u' || !allHex(b[i+2:]) {
			continue
		}
		slashes := 0
		for j := i - 1; j >= 0 && b[j] == '\\'; j-- {
			slashes++
		}
		if slashes%2 == 0 {
			return b[:i]
		}
	}
	return b
}

func allHex(b []byte) bool {
	for _, c := range b {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}
