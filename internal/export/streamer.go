// Package export streams ledger reports as RFC 4180 CSV.
package export

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

var errNotInitialised = errors.New("export: csv streamer not initialised")

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

// writeComment emits a raw "# ..." metadata line. Pending rows are flushed
// first so the line lands in order.
func (s *csvStreamer) writeComment(line string) error {
	if s == nil || s.buf == nil {
		return errNotInitialised
	}
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	line = strings.NewReplacer("\r", " ", "\n", " ").Replace(line)
	_, err := s.buf.WriteString(line + "\r\n")
	return err
}

func (s *csvStreamer) writeRow(row ...string) error {
	if s == nil || s.csv == nil {
		return errNotInitialised
	}
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.Flush()
	}
	return nil
}

func (s *csvStreamer) Flush() error {
	if s == nil || s.csv == nil || s.buf == nil {
		return errNotInitialised
	}
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

func (s *csvStreamer) Close() error {
	return s.Flush()
}
