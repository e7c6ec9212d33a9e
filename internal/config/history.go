package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// MaxHistoryLines is the cap on retained invocations (spec.md §6.3).
const MaxHistoryLines = 100

// DefaultHistoryFile returns the default history file path for a root.
func DefaultHistoryFile(root string) string {
	return root + "/.autogitpull.config"
}

// AppendHistory appends one invocation line (the argv, space-joined) to the
// history file, keeping only the last MaxHistoryLines entries.
func AppendHistory(path string, argv []string) error {
	line := strings.Join(argv, " ")

	lines, err := readLines(path)
	if err != nil {
		return err
	}
	lines = append(lines, line)
	if len(lines) > MaxHistoryLines {
		lines = lines[len(lines)-MaxHistoryLines:]
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing history file %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	return w.Flush()
}

// ReadHistory returns the recorded invocations, oldest first.
func ReadHistory(path string) ([]string, error) {
	return readLines(path)
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history file %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if sc.Text() != "" {
			lines = append(lines, sc.Text())
		}
	}
	return lines, sc.Err()
}
