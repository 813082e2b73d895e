package config

import (
	"fmt"
	"strings"
	"unicode"
)

// parseArgv splits a configured command line into argv, honoring single and
// double quotes plus backslash escapes. A blank or comment ("#") value means
// the command is disabled and yields a nil argv.
func parseArgv(command string) ([]string, error) {
	command = strings.TrimSpace(command)
	if command == "" || strings.HasPrefix(command, "#") {
		return nil, nil
	}

	var (
		argv    []string
		word    strings.Builder
		inQuote rune
		escaped bool
	)

	endWord := func() {
		if word.Len() == 0 {
			return
		}
		argv = append(argv, word.String())
		word.Reset()
	}

	for _, r := range command {
		switch {
		case escaped:
			word.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case inQuote != 0:
			if r == inQuote {
				inQuote = 0
				continue
			}
			word.WriteRune(r)
		case r == '\'' || r == '"':
			inQuote = r
		case unicode.IsSpace(r):
			endWord()
		default:
			word.WriteRune(r)
		}
	}

	if escaped {
		return nil, fmt.Errorf("command %q ends mid-escape", command)
	}
	if inQuote != 0 {
		return nil, fmt.Errorf("command %q has an unterminated quote", command)
	}

	endWord()
	return argv, nil
}

// mustParseArgv is for built-in defaults, which are known to parse.
func mustParseArgv(command string) []string {
	argv, err := parseArgv(command)
	if err != nil {
		panic(err)
	}
	return argv
}
