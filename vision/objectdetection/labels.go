package objectdetection

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// LabelTable maps class indices to display names.
type LabelTable []string

// LoadLabels reads a label file with one name per line. The line number is the class index.
func LoadLabels(path string) (LabelTable, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open label file %q", path)
	}
	defer func() {
		//nolint:errcheck
		f.Close()
	}()

	labels := LabelTable{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "cannot read label file %q", path)
	}
	return labels, nil
}

// Name returns the label of a class. Classes without a label, or with an empty one, are named by
// their index.
func (l LabelTable) Name(class int) string {
	if class >= 0 && class < len(l) && l[class] != "" {
		return l[class]
	}
	return strconv.Itoa(class)
}
