package runlog

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"github.com/gwillem/hebidemo/pkg/recorder"
)

var csvHeader = []string{"time", "p_act", "p_cmd", "v_act", "v_cmd"}

// WriteCSV writes the valid samples with a header row.
func WriteCSV(w io.Writer, s *recorder.Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "write header")
	}

	v := s.Valid()
	row := make([]string, len(csvHeader))
	for i := 0; i < v.Len(); i++ {
		smp := v.At(i)
		for c, f := range []float64{smp.Time, smp.PAct, smp.PCmd, smp.VAct, smp.VCmd} {
			row[c] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "write row %d", i)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

// SaveCSV writes the valid samples to path.
func SaveCSV(path string, s *recorder.Series) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create csv directory")
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create csv")
	}
	if err := WriteCSV(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadCSV parses samples written by WriteCSV.
func ReadCSV(r io.Reader) (*recorder.Series, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	if len(records) == 0 {
		return nil, errors.New("csv: missing header")
	}
	if len(records[0]) != len(csvHeader) {
		return nil, errors.Errorf("csv: expected %d columns, got %d", len(csvHeader), len(records[0]))
	}

	samples := make([]recorder.Sample, 0, len(records)-1)
	for n, rec := range records[1:] {
		var vals [5]float64
		for c := range vals {
			v, err := strconv.ParseFloat(rec[c], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "csv: row %d column %s", n+1, csvHeader[c])
			}
			vals[c] = v
		}
		samples = append(samples, recorder.Sample{Time: vals[0], PAct: vals[1], PCmd: vals[2], VAct: vals[3], VCmd: vals[4]})
	}
	return recorder.FromSamples(samples), nil
}
