// Package toolutil holds the terminal helpers shared by mongokit commands:
// the slog logger, colored labels on stderr and JSON highlighting.
package toolutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/TylerBrock/colorjson"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Stderr receives labels and log records.
var Stderr io.Writer = color.Error

var (
	logLevel = new(slog.LevelVar)
	logger   = newLogger()
)

func newLogger() *slog.Logger {
	logLevel.Set(slog.LevelWarn)
	return slog.New(slog.NewTextHandler(stderrWriter{}, &slog.HandlerOptions{Level: logLevel}))
}

// stderrWriter resolves Stderr on every write so tests can swap it.
type stderrWriter struct{}

func (stderrWriter) Write(p []byte) (int, error) { return Stderr.Write(p) }

// Logger returns the process logger.
func Logger() *slog.Logger {
	return logger
}

// SetupLogger sets the level of the process logger: debug when verbose,
// warnings only otherwise.
func SetupLogger(verbose bool) *slog.Logger {
	if verbose {
		logLevel.Set(slog.LevelDebug)
	} else {
		logLevel.Set(slog.LevelWarn)
	}
	return logger
}

// DisableColor turns off every color escape produced by this package.
func DisableColor() {
	color.NoColor = true
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

var errorLabel = color.New(color.FgRed, color.Bold)

// PrintError prints a red label followed by the error detail.
func PrintError(label string, err error) {
	errorLabel.Fprintln(Stderr, label)
	fmt.Fprintln(Stderr, err)
}

// Danger renders text in red, for command descriptions of destructive commands.
func Danger(text string) string {
	return color.RedString(text)
}

// Caution renders text in yellow.
func Caution(text string) string {
	return color.YellowString(text)
}

// PrettyJSON colorizes a JSON body for the terminal. Bodies that are not
// valid JSON are returned unchanged. Object keys come out sorted.
func PrettyJSON(body []byte) []byte {
	if len(body) == 0 {
		return body
	}
	// numbers stay json.Number so 64-bit integers keep every digit
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var obj any
	if err := dec.Decode(&obj); err != nil {
		return body
	}

	f := colorjson.NewFormatter()
	f.Indent = 2
	f.DisabledColor = color.NoColor
	out, err := f.Marshal(obj)
	if err != nil {
		return body
	}
	return append(out, '\n')
}
