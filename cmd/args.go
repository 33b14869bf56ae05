package cmd

import (
	"errors"
	"strings"
)

var errUnbalancedQuotes = errors.New("unbalanced quotes")

// splitArgs splits a line into words. Double quoted words understand the
// escapes \n \r \t \\ and \"; single quoted words are literal except for
// \'. A closing quote must be followed by a space or the end of the line.
func splitArgs(line string) ([]string, error) {
	var argv []string
	i := 0
	for {
		for i < len(line) && isSpace(line[i]) {
			i++
		}
		if i >= len(line) {
			return argv, nil
		}

		var cur strings.Builder
		inDouble, inSingle := false, false
		for done := false; !done; {
			if inDouble {
				if i >= len(line) {
					return nil, errUnbalancedQuotes
				}
				c := line[i]
				switch {
				case c == '\\' && i+1 < len(line):
					i++
					switch line[i] {
					case 'n':
						cur.WriteByte('\n')
					case 'r':
						cur.WriteByte('\r')
					case 't':
						cur.WriteByte('\t')
					default:
						cur.WriteByte(line[i])
					}
				case c == '"':
					if i+1 < len(line) && !isSpace(line[i+1]) {
						return nil, errUnbalancedQuotes
					}
					done = true
				default:
					cur.WriteByte(c)
				}
				i++
				continue
			}
			if inSingle {
				if i >= len(line) {
					return nil, errUnbalancedQuotes
				}
				c := line[i]
				switch {
				case c == '\\' && i+1 < len(line) && line[i+1] == '\'':
					i++
					cur.WriteByte('\'')
				case c == '\'':
					if i+1 < len(line) && !isSpace(line[i+1]) {
						return nil, errUnbalancedQuotes
					}
					done = true
				default:
					cur.WriteByte(c)
				}
				i++
				continue
			}

			if i >= len(line) {
				break
			}
			switch c := line[i]; {
			case isSpace(c):
				done = true
			case c == '"':
				inDouble = true
			case c == '\'':
				inSingle = true
			default:
				cur.WriteByte(c)
			}
			i++
		}
		argv = append(argv, cur.String())
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
