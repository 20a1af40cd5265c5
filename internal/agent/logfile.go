// internal/agent/logfile.go
package agent

import (
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// headerLines is the size of the header every new chat log starts with
const headerLines = 13

// minLineLen skips blank and stub lines
const minLineLen = 2

// ReadLines reads a chat log. The client writes UTF-16LE, usually with a
// byte order mark.
func ReadLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	text, err := dec.Bytes(data)
	if err != nil {
		return nil, err
	}

	s := strings.TrimSuffix(string(text), "\n")
	if s == "" {
		return nil, nil
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines, nil
}
