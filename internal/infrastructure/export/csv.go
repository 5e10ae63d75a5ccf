package export

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/erp/salesreport/internal/application/report"
	"github.com/erp/salesreport/internal/domain/sales"
	"go.uber.org/zap"
)

const (
	// DefaultDirectory is where CSV files are written unless configured otherwise
	DefaultDirectory = "reports"
	// DefaultDelimiter separates CSV fields
	DefaultDelimiter = ','
)

// ErrInvalidDelimiter is returned for delimiters encoding/csv cannot write
var ErrInvalidDelimiter = errors.New("export: invalid csv delimiter")

// FileName is the report file name for window, e.g.
// relatorio_vendas_2024-05-01_2024-05-31.csv
func FileName(window sales.Window) string {
	return fmt.Sprintf("relatorio_vendas_%s_%s.csv", window.StartDate(), window.EndDate())
}

// ParseDelimiter converts a configured delimiter to a rune. "\t" and "tab"
// select the tab character.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return DefaultDelimiter, nil
	case `\t`, "tab":
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) {
		return 0, fmt.Errorf("%w: %q must be a single character", ErrInvalidDelimiter, s)
	}
	if !validDelimiter(r) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDelimiter, s)
	}
	return r, nil
}

func validDelimiter(r rune) bool {
	return r != 0 && r != '"' && r != '\r' && r != '\n' && r != utf8.RuneError
}

// EncodeCSV writes the header row and one line per row.
func EncodeCSV(w io.Writer, rows []sales.Row, delimiter rune) error {
	if !validDelimiter(delimiter) {
		return fmt.Errorf("%w: %q", ErrInvalidDelimiter, delimiter)
	}

	cw := csv.NewWriter(w)
	cw.Comma = delimiter

	if err := cw.Write(sales.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i := range rows {
		if err := cw.Write(rows[i].Values()); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSVSink writes reports as CSV files into a directory.
type CSVSink struct {
	directory string
	delimiter rune
	logger    *zap.Logger
}

// CSVOption configures a CSVSink
type CSVOption func(*CSVSink)

// WithDirectory sets the output directory
func WithDirectory(dir string) CSVOption {
	return func(s *CSVSink) {
		s.directory = dir
	}
}

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) CSVOption {
	return func(s *CSVSink) {
		s.delimiter = d
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) CSVOption {
	return func(s *CSVSink) {
		s.logger = logger
	}
}

// NewCSVSink creates a file sink.
func NewCSVSink(opts ...CSVOption) (*CSVSink, error) {
	s := &CSVSink{
		directory: DefaultDirectory,
		delimiter: DefaultDelimiter,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if !validDelimiter(s.delimiter) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDelimiter, s.delimiter)
	}
	if s.directory == "" {
		s.directory = DefaultDirectory
	}
	return s, nil
}

// Name implements report.Sink
func (s *CSVSink) Name() string {
	return "csv"
}

// Write stores the report as <directory>/relatorio_vendas_<start>_<end>.csv,
// replacing any earlier file for the same window. The file only appears
// once it is complete.
func (s *CSVSink) Write(ctx context.Context, r *report.Report) (report.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return report.Artifact{}, err
	}
	if err := os.MkdirAll(s.directory, 0o755); err != nil {
		return report.Artifact{}, fmt.Errorf("create report directory: %w", err)
	}

	path := filepath.Join(s.directory, FileName(r.Window))
	s.logger.Info("Writing CSV", zap.String("path", path), zap.Int("rows", len(r.Rows)))

	tmp, err := os.CreateTemp(s.directory, ".relatorio_vendas_*.tmp")
	if err != nil {
		return report.Artifact{}, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	buf := bufio.NewWriter(tmp)
	if err := EncodeCSV(buf, r.Rows, s.delimiter); err != nil {
		tmp.Close()
		return report.Artifact{}, err
	}
	if err := buf.Flush(); err != nil {
		tmp.Close()
		return report.Artifact{}, fmt.Errorf("flush csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return report.Artifact{}, fmt.Errorf("close csv: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return report.Artifact{}, fmt.Errorf("chmod csv: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return report.Artifact{}, fmt.Errorf("rename csv: %w", err)
	}

	s.logger.Info("CSV saved", zap.String("path", path), zap.Int("rows", len(r.Rows)))
	return report.Artifact{Sink: s.Name(), Location: path}, nil
}

var _ report.Sink = (*CSVSink)(nil)
