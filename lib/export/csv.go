// Package export writes harvested licences and holder rosters as csv files.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// appendCsv appends `rows` to the csv file at `path`, the header is only
// written when the file did not exist or was empty.
func appendCsv(path string, header []string, rows [][]string) (err error) {
	err = os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		err = w.Write(header)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	err = w.WriteAll(rows)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func writeCsv(path string, header []string, rows [][]string) (err error) {
	err = os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	w := csv.NewWriter(f)
	err = w.Write(header)
	if err != nil {
		return err
	}
	err = w.WriteAll(rows)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optDate(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.Format(time.DateOnly)
}
