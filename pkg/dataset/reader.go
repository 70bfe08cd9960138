// Delimited-table reader for the training and test image tables
package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/cuevascarlos/KernelMethods-DataChallenge/internal/logging"
	apperrors "github.com/cuevascarlos/KernelMethods-DataChallenge/pkg/errors"
)

// Default file names inside a data directory
const (
	TrainImagesFile = "Xtr.csv"
	TrainLabelsFile = "Ytr.csv"
	TestImagesFile  = "Xte.csv"
)

// Tables holds everything read from disk. Test is nil when no test table was given.
type Tables struct {
	Train  *mat.Dense
	Labels []int
	Test   *mat.Dense
}

// TrainSet returns the training tables as a Dataset
func (t *Tables) TrainSet() *Dataset {
	return &Dataset{Images: t.Train, Labels: t.Labels}
}

// Reader handles image and label table files
type Reader struct {
	logger      *logrus.Logger
	delimiter   rune
	imageHeader bool
	labelHeader bool
}

// ReaderOption configures a Reader
type ReaderOption func(*Reader)

// WithDelimiter sets the field delimiter (default ',')
func WithDelimiter(d rune) ReaderOption {
	return func(r *Reader) { r.delimiter = d }
}

// WithImageHeader declares that image tables start with a header row
func WithImageHeader(header bool) ReaderOption {
	return func(r *Reader) { r.imageHeader = header }
}

// WithLabelHeader declares whether label tables start with a header row (default true)
func WithLabelHeader(header bool) ReaderOption {
	return func(r *Reader) { r.labelHeader = header }
}

// WithReaderLogger sets the logger
func WithReaderLogger(logger *logrus.Logger) ReaderOption {
	return func(r *Reader) { r.logger = logger }
}

// NewReader creates a reader for comma separated tables
func NewReader(opts ...ReaderOption) *Reader {
	r := &Reader{
		logger:      logging.Default(),
		delimiter:   ',',
		labelHeader: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadDir reads Xtr.csv, Ytr.csv and, when present, Xte.csv from dir.
func (r *Reader) ReadDir(dir string) (*Tables, error) {
	testPath := filepath.Join(dir, TestImagesFile)
	if _, err := os.Stat(testPath); err != nil {
		r.logger.WithField("path", testPath).Debug("No test table found")
		testPath = ""
	}
	return r.Read(filepath.Join(dir, TrainImagesFile), filepath.Join(dir, TrainLabelsFile), testPath)
}

// Read loads the training images, their labels and the optional test images.
// An empty testPath skips the test table.
func (r *Reader) Read(trainPath, labelPath, testPath string) (*Tables, error) {
	train, err := r.ReadImages(trainPath)
	if err != nil {
		return nil, err
	}

	labels, err := r.ReadLabels(labelPath)
	if err != nil {
		return nil, err
	}

	rows, _ := train.Dims()
	if rows != len(labels) {
		return nil, apperrors.NewFormatError(
			fmt.Sprintf("%s has %d rows but %s has %d labels", trainPath, rows, labelPath, len(labels)), nil)
	}

	tables := &Tables{Train: train, Labels: labels}
	if testPath != "" {
		if tables.Test, err = r.ReadImages(testPath); err != nil {
			return nil, err
		}
	}

	r.logger.WithFields(logrus.Fields{
		"train_rows": rows,
		"classes":    len(Classes(labels)),
		"has_test":   tables.Test != nil,
	}).Info("Data tables loaded")

	return tables, nil
}

// ReadImages reads an image table. Each row needs at least ImageLen numeric
// columns; columns past ImageLen are ignored.
func (r *Reader) ReadImages(path string) (*mat.Dense, error) {
	var data []float64
	rows := 0

	err := r.scan(path, r.imageHeader, func(row int, record []string) error {
		if len(record) < ImageLen {
			return apperrors.NewFormatError(
				fmt.Sprintf("%s row %d: %d columns, expected at least %d", path, row, len(record), ImageLen), nil)
		}
		for col := 0; col < ImageLen; col++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
			if err != nil {
				return apperrors.NewFormatError(
					fmt.Sprintf("%s row %d column %d: not a number", path, row, col+1), err)
			}
			data = append(data, v)
		}
		rows++
		return nil
	})
	if err != nil {
		return nil, err
	}

	if rows == 0 {
		return nil, apperrors.NewFormatError(fmt.Sprintf("%s: no rows", path), nil)
	}

	r.logger.WithFields(logrus.Fields{
		"path": path,
		"rows": rows,
		"cols": ImageLen,
	}).Debug("Image table read")

	return mat.NewDense(rows, ImageLen, data), nil
}

// ReadLabels reads an id,label table and returns the labels in row order.
func (r *Reader) ReadLabels(path string) ([]int, error) {
	var labels []int

	err := r.scan(path, r.labelHeader, func(row int, record []string) error {
		if len(record) != 2 {
			return apperrors.NewFormatError(
				fmt.Sprintf("%s row %d: %d columns, expected 2 (id, label)", path, row, len(record)), nil)
		}
		label, err := parseLabel(record[1])
		if err != nil {
			return apperrors.NewFormatError(
				fmt.Sprintf("%s row %d: invalid label %q", path, row, record[1]), err)
		}
		labels = append(labels, label)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(labels) == 0 {
		return nil, apperrors.NewFormatError(fmt.Sprintf("%s: no rows", path), nil)
	}

	r.logger.WithFields(logrus.Fields{
		"path": path,
		"rows": len(labels),
	}).Debug("Label table read")

	return labels, nil
}

func (r *Reader) scan(path string, header bool, fn func(row int, record []string) error) error {
	file, err := os.Open(path)
	if err != nil {
		return apperrors.NewFormatError(fmt.Sprintf("cannot open %s", path), err)
	}
	defer file.Close()

	reader := csv.NewReader(bufio.NewReader(file))
	reader.Comma = r.delimiter
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		row++
		if err != nil {
			return apperrors.NewFormatError(fmt.Sprintf("%s row %d", path, row), err)
		}
		if header && row == 1 {
			continue
		}
		if err := fn(row, record); err != nil {
			return err
		}
	}
}

// parseLabel accepts integers and integral floats such as "3.0".
func parseLabel(s string) (int, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("label %v is not integral", f)
	}
	return int(f), nil
}
