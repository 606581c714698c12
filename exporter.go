package gosam

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// CSVExporter is an Observer that writes the trajectory of selected poses to
// a CSV file, one row per iteration.
type CSVExporter struct {
	keys      []Key
	delimiter string
	hdlr      *os.File
}

// NewCSVExporter initializes a new CSV export tracking the given pose keys.
func NewCSVExporter(keys []Key, filepath, filename string) (e *CSVExporter, err error) {
	f, err := os.Create(fmt.Sprintf("%s/%s", filepath, filename))
	if err != nil {
		return
	}
	delimiter := ","
	// Header
	hdr := make([]string, 0, 2+3*len(keys))
	hdr = append(hdr, "iter", "error")
	for _, key := range keys {
		hdr = append(hdr, key.String()+".theta", key.String()+".x", key.String()+".y")
	}
	f.WriteString(fmt.Sprintf("# Creation date (UTC): %s\n%s\n", time.Now().UTC(), strings.Join(hdr, delimiter)))
	e = &CSVExporter{keys, delimiter, f}
	return
}

// OnIteration implements the Observer interface. Keys missing from the
// values, or not holding an SE2, are written as empty cells.
func (e *CSVExporter) OnIteration(iter int, errVal float64, values *Values) {
	vals := make([]string, 0, 2+3*len(e.keys))
	vals = append(vals, fmt.Sprintf("%d", iter), fmt.Sprintf("%f", errVal))
	for _, key := range e.keys {
		pose, err := values.SE2At(key)
		if err != nil {
			vals = append(vals, "", "", "")
			continue
		}
		x, y := pose.XY()
		vals = append(vals, fmt.Sprintf("%f", pose.Theta()), fmt.Sprintf("%f", x), fmt.Sprintf("%f", y))
	}
	e.hdlr.WriteString(strings.Join(vals, e.delimiter) + "\n")
}

// WriteRawLn writes a raw line to the CSV file.
func (e *CSVExporter) WriteRawLn(s string) error {
	_, err := e.hdlr.WriteString(s + "\n")
	return err
}

// Close closes the file.
func (e *CSVExporter) Close() (err error) {
	err = e.WriteRawLn(fmt.Sprintf("# Closing date (UTC): %s", time.Now().UTC()))
	if err != nil {
		return
	}
	return e.hdlr.Close()
}
