package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Tail returns the last n lines of the file at path, oldest first. n <= 0
// returns every line. A missing file yields no lines and no error.
func Tail(path string, n int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	var ring []string
	if n > 0 {
		ring = make([]string, 0, n)
	}
	next := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case n <= 0 || len(ring) < n:
			ring = append(ring, line)
		default:
			ring[next] = line
			next = (next + 1) % n
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	if next == 0 {
		return ring, nil
	}
	return append(ring[next:], ring[:next]...), nil
}

// Level parses the level of a line written by logrus' text or JSON
// formatter. ok is false for lines without a recognizable level, such as
// wrapped continuation lines.
func Level(line string) (level logrus.Level, ok bool) {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "{") {
		var entry struct {
			Level string `json:"level"`
		}
		if json.Unmarshal([]byte(line), &entry) != nil || entry.Level == "" {
			return 0, false
		}
		lvl, err := logrus.ParseLevel(entry.Level)
		return lvl, err == nil
	}

	idx := strings.Index(line, "level=")
	if idx < 0 {
		return 0, false
	}
	value := line[idx+len("level="):]
	if end := strings.IndexByte(value, ' '); end >= 0 {
		value = value[:end]
	}
	lvl, err := logrus.ParseLevel(strings.Trim(value, `"`))
	return lvl, err == nil
}

// Filter keeps lines at threshold severity or above. Lines without a level follow
// the decision for the line before them.
func Filter(lines []string, threshold logrus.Level) []string {
	out := make([]string, 0, len(lines))
	keep := true
	for _, line := range lines {
		if lvl, ok := Level(line); ok {
			keep = lvl <= threshold
		}
		if keep {
			out = append(out, line)
		}
	}
	return out
}
