package main

import (
	"fmt"
	"strconv"
	"strings"
)

// parseLine splits "element<TAB>increment"; a line without a tab counts once.
// Only the last tab separates, so elements may contain tabs themselves.
func parseLine(line string) (element string, increment uint64, err error) {
	line = strings.TrimSuffix(line, "\r")

	idx := strings.LastIndexByte(line, '\t')
	if idx < 0 {
		return line, 1, nil
	}

	increment, err = strconv.ParseUint(line[idx+1:], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid increment %q: %w", line[idx+1:], err)
	}
	return line[:idx], increment, nil
}
