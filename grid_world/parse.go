package grid_world

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// NON_TERMINAL marks an actionable cell in a board file.
const NON_TERMINAL = "X"

/*
Board files are plain text:

	# comments run to the end of the line; spaces and blank lines are ignored
	3               # board size N
	0.9             # gamma
	0.8, 0.1, 0.1   # noise: intended, clockwise, counter-clockwise[, opposite]
	X, X, 10
	X, X, -10
	X, X, X

Each of the N rows holds N comma-separated cells: X for a non-terminal cell, or a
terminal cell's fixed value.
*/

// FromFile parses the board file at path.
func FromFile(path string) (*Board, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	board, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return board, nil
}

// Parse reads a board description and returns the validated board.
func Parse(r io.Reader) (*Board, error) {
	lines, err := readFields(r)
	if err != nil {
		return nil, err
	}
	if len(lines) < 3 {
		return nil, fmt.Errorf("expected size, gamma and noise lines, got %d lines", len(lines))
	}

	size, err := strconv.Atoi(lines[0][0])
	if err != nil {
		return nil, fmt.Errorf("size: %w", err)
	}
	if size <= 0 {
		return nil, fmt.Errorf("board size must be positive, got %d", size)
	}

	gamma, err := strconv.ParseFloat(lines[1][0], 64)
	if err != nil {
		return nil, fmt.Errorf("gamma: %w", err)
	}

	noiseVals, err := parseFloats(lines[2])
	if err != nil {
		return nil, fmt.Errorf("noise: %w", err)
	}
	noise, err := NewNoise(noiseVals...)
	if err != nil {
		return nil, err
	}

	rows := lines[3:]
	if len(rows) != size {
		return nil, fmt.Errorf("expected %d board rows, got %d", size, len(rows))
	}

	values := NewGrid(size)
	nonTerminal := make([][]bool, size)
	for i, row := range rows {
		if len(row) != size {
			return nil, fmt.Errorf("row %d: expected %d cells, got %d", i, size, len(row))
		}
		nonTerminal[i] = make([]bool, size)
		for j, field := range row {
			if strings.EqualFold(field, NON_TERMINAL) {
				nonTerminal[i][j] = true
				continue
			}
			if values[i][j], err = strconv.ParseFloat(field, 64); err != nil {
				return nil, fmt.Errorf("cell (%d,%d): %w", i, j, err)
			}
		}
	}

	return NewBoard(size, gamma, noise, values, nonTerminal)
}

// Write emits the board in the format read by Parse. The noise is written with all four values.
func Write(w io.Writer, b *Board) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n", b.Size)
	fmt.Fprintf(bw, "%s\n", formatFloat(b.Gamma))
	// Board-file order is intended, clockwise, counter-clockwise, opposite.
	fmt.Fprintf(bw, "%s, %s, %s, %s\n\n",
		formatFloat(b.Noise[0]),
		formatFloat(b.Noise[1]),
		formatFloat(b.Noise[3]),
		formatFloat(b.Noise[2]))
	for i := 0; i < b.Size; i++ {
		fields := make([]string, b.Size)
		for j := 0; j < b.Size; j++ {
			if b.NonTerminal[i][j] {
				fields[j] = NON_TERMINAL
			} else {
				fields[j] = formatFloat(b.Values[i][j])
			}
		}
		fmt.Fprintln(bw, strings.Join(fields, ","))
	}
	return bw.Flush()
}

// readFields strips comments and whitespace, skips empty lines and splits the rest on commas.
func readFields(r io.Reader) (lines [][]string, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.SplitN(scanner.Text(), "#", 2)[0]
		line = strings.Join(strings.Fields(line), "")
		if line == "" {
			continue
		}
		lines = append(lines, strings.Split(line, ","))
	}
	err = scanner.Err()
	return
}

func parseFloats(fields []string) (vals []float64, err error) {
	vals = make([]float64, len(fields))
	for i, field := range fields {
		if vals[i], err = strconv.ParseFloat(field, 64); err != nil {
			return nil, err
		}
	}
	return
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
