package notch

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Load parses a notch list in the plain-text format used by published
// observing-run line lists: one range per line as
//
//	low, high[, description]
//
// with either comma or whitespace separation. Blank lines and lines starting
// with '#' or '%' are ignored.
func Load(r io.Reader) (List, error) {
	var list List

	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "%") {
			continue
		}

		fields := splitLine(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("notch list line %d: need at least low and high frequency", lineNo)
		}

		low, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("notch list line %d: bad lower edge %q", lineNo, fields[0])
		}

		high, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("notch list line %d: bad upper edge %q", lineNo, fields[1])
		}

		desc := ""
		if len(fields) > 2 {
			desc = strings.Trim(strings.Join(fields[2:], " "), `"`)
		}

		rng := Range{Low: low, High: high, Description: desc}
		if err := rng.validate(); err != nil {
			return nil, fmt.Errorf("notch list line %d: %w", lineNo, err)
		}

		list = append(list, rng)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("notch list read: %w", err)
	}

	return list, nil
}

// LoadFile reads a notch list from a file path.
func LoadFile(path string) (List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("notch list open: %w", err)
	}
	defer f.Close()

	return Load(f)
}

func splitLine(line string) []string {
	if strings.Contains(line, ",") {
		parts := strings.Split(line, ",")
		out := make([]string, 0, len(parts))

		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}

		return out
	}

	return strings.Fields(line)
}
