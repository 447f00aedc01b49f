package repair

import "strings"

// RepairStructure fixes the mistakes models make inside otherwise well formed
// JSON. Inside strings, a quote that is not followed by a structural character
// is escaped, raw newlines, carriage returns and tabs become escape sequences,
// and invalid escapes keep their backslash literally. Outside strings, commas
// directly before ']' or '}' are dropped.
func RepairStructure(text string) string {
	var b strings.Builder

	b.Grow(len(text) + len(text)/16)

	inString := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inString {
			switch c {
			case '\\':
				if i+1 < len(text) && isEscapable(text[i+1]) {
					b.WriteByte(c)
					b.WriteByte(text[i+1])
					i++
				} else {
					b.WriteString(`\\`)
				}
			case '"':
				if closesString(text, i+1) {
					inString = false
					b.WriteByte(c)
				} else {
					b.WriteString(`\"`)
				}
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '\t':
				b.WriteString(`\t`)
			default:
				b.WriteByte(c)
			}

			continue
		}

		switch c {
		case '"':
			inString = true
			b.WriteByte(c)
		case ',':
			if next := nextNonSpace(text, i+1); next < len(text) && (text[next] == ']' || text[next] == '}') {
				continue
			}

			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

// AutoClose completes truncated JSON: an open string is closed, a dangling
// comma or colon is settled, and every open array and object is closed in
// nesting order.
func AutoClose(text string) string {
	var (
		stack       []byte
		inString    bool
		escaped     bool
		stringStart int
	)

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}

			continue
		}

		switch c {
		case '"':
			inString = true
			stringStart = i
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	closed := text

	if inString {
		if escaped {
			closed = closed[:len(closed)-1]
		}

		closed += `"`
	}

	closed = strings.TrimRight(closed, " \t\r\n")

	switch {
	case strings.HasSuffix(closed, ","):
		closed = strings.TrimRight(closed[:len(closed)-1], " \t\r\n")
	case strings.HasSuffix(closed, ":"):
		closed += "null"
	case strings.HasSuffix(closed, `"`) && isDanglingKey(text, stringStart, stack):
		closed += ":null"
	}

	var b strings.Builder

	b.WriteString(closed)

	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}

	return b.String()
}

// isDanglingKey reports whether the last string opened at start is an object
// key whose value was cut off.
func isDanglingKey(text string, start int, stack []byte) bool {
	if len(stack) == 0 || stack[len(stack)-1] != '}' {
		return false
	}

	prev := strings.TrimRight(text[:start], " \t\r\n")
	if prev == "" {
		return false
	}

	last := prev[len(prev)-1]

	return last == '{' || last == ','
}

// closesString reports whether a quote ending at pos-1 ends its string: the
// next non-space character is structural or the input is over.
func closesString(text string, pos int) bool {
	next := nextNonSpace(text, pos)
	if next >= len(text) {
		return true
	}

	switch text[next] {
	case ',', '}', ']', ':':
		return true
	default:
		return false
	}
}

func nextNonSpace(text string, pos int) int {
	for pos < len(text) {
		switch text[pos] {
		case ' ', '\t', '\n', '\r':
			pos++
		default:
			return pos
		}
	}

	return pos
}

func isEscapable(c byte) bool {
	switch c {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
		return true
	default:
		return false
	}
}
