package nx

import (
	"fmt"
	"strings"
)

// splitShellArgs tokenizes s like a POSIX shell, respecting single and double
// quotes and backslash escapes outside quotes. No variable expansion or
// globbing is performed, so an nx_command in artifacts.yaml such as
//
//	node "tools/my nx.js" --verbose
//
// keeps the quoted path as one argument.
func splitShellArgs(s string) ([]string, error) {
	var args []string
	var cur strings.Builder
	inSingle := false
	inDouble := false

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case inSingle:
			if ch == '\'' {
				inSingle = false
			} else {
				cur.WriteByte(ch)
			}
		case inDouble:
			if ch == '\\' && i+1 < len(s) {
				next := s[i+1]
				// Characters escapable inside double quotes per POSIX
				if next == '"' || next == '\\' || next == '$' || next == '`' || next == '\n' {
					cur.WriteByte(next)
					i++
				} else {
					cur.WriteByte(ch)
				}
			} else if ch == '"' {
				inDouble = false
			} else {
				cur.WriteByte(ch)
			}
		case ch == '\\':
			if i+1 < len(s) {
				cur.WriteByte(s[i+1])
				i++
			}
		case ch == '\'':
			inSingle = true
		case ch == '"':
			inDouble = true
		case ch == ' ' || ch == '\t':
			if cur.Len() > 0 {
				args = append(args, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(ch)
		}
	}

	if inSingle {
		return nil, fmt.Errorf("unterminated single quote in nx command")
	}
	if inDouble {
		return nil, fmt.Errorf("unterminated double quote in nx command")
	}
	if cur.Len() > 0 {
		args = append(args, cur.String())
	}

	return args, nil
}
