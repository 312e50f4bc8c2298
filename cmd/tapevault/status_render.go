package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusSuccess statusKind = iota
	statusError
)

const (
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorReset = "\033[0m"
)

// printStatus writes a one-line result marker, colorized when the writer
// is a terminal.
func printStatus(writer io.Writer, kind statusKind, message string) {
	marker := "✓"
	color := colorGreen
	if kind == statusError {
		marker = "✗"
		color = colorRed
	}
	if shouldColorize(writer) {
		fmt.Fprintf(writer, "%s%s%s %s\n", color, marker, colorReset, message)
		return
	}
	fmt.Fprintf(writer, "%s %s\n", marker, message)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
