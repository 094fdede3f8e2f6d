package runtime

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/kewos554321/blaze4harbor/iox"
	"github.com/kewos554321/blaze4harbor/types"
)

// ResultsMarker is the phrase harbor prints next to the result file path.
const ResultsMarker = "Results written to"

// maxLineSize caps a single scanned segment. Longer runs without a line
// break are handed to the matcher in maxLineSize pieces.
const maxLineSize = 4 << 20

var (
	resultPathPattern = regexp.MustCompile(`Results written to\s+(.+?)[/\\]` + regexp.QuoteMeta(types.ResultFileName))
	// CSI sequences, OSC sequences terminated by BEL or ST, and bare carriage returns.
	terminalNoise = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)|\r`)
)

// Locate scans r line by line and returns the result directory named by the
// first line containing the results marker.
//
// Lines end at \n or at a bare \r, so progress bars that redraw in place
// never accumulate into one unbounded line. Only the first marker line is
// considered. It returns ErrNotFound when no line carries the marker or the
// marker line has no extractable path.
func Locate(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	scanner.Split(scanTerminalLines)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, ResultsMarker) {
			// Escapes may split the marker; only pay for stripping when it could matter.
			if !strings.Contains(line, "\x1b") {
				continue
			}
			line = terminalNoise.ReplaceAllString(line, "")
			if !strings.Contains(line, ResultsMarker) {
				continue
			}
		}
		return extractResultDir(terminalNoise.ReplaceAllString(line, ""))
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan captured output: %w", err)
	}
	return "", ErrNotFound
}

// LocateCaptured runs Locate over a captured run's recorded output.
func LocateCaptured(run *types.CapturedRun) (string, error) {
	rc, err := run.Output()
	if err != nil {
		return "", err
	}
	defer iox.DiscardClose(rc)
	return Locate(rc)
}

// scanTerminalLines is a bufio.SplitFunc that ends a line at \n or \r.
// A segment that reaches maxLineSize without either is returned as is so the
// scanner never fails with bufio.ErrTooLong.
func scanTerminalLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF || len(data) >= maxLineSize {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func extractResultDir(line string) (string, error) {
	m := resultPathPattern.FindStringSubmatch(line)
	if m == nil {
		return "", fmt.Errorf("%w: marker line has no result path: %q", ErrNotFound, strings.TrimSpace(line))
	}
	return strings.TrimSpace(m[1]), nil
}
