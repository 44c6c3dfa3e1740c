package obs

// #region imports
import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// #endregion

// #region columns
var csvColumns = []string{"obs_id", "mass_kg", "radius_m", "v_total_ms", "v_los_ms", "observed_z", "sigma"}

// #endregion columns

// #region read
// ReadCSV parses an observation catalog. The first record must be the header
// obs_id,mass_kg,radius_m,v_total_ms,v_los_ms,observed_z,sigma and every row
// must validate.
func ReadCSV(r io.Reader) ([]Observation, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) != len(csvColumns) {
		return nil, fmt.Errorf("obs: header has %d columns, want %d", len(header), len(csvColumns))
	}
	for i, col := range csvColumns {
		if header[i] != col {
			return nil, fmt.Errorf("obs: header column %d is %q, want %q", i, header[i], col)
		}
	}

	var out []Observation
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line++

		fields := make([]float64, len(rec)-1)
		for i, raw := range rec[1:] {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("obs: line %d, column %s: %w", line, csvColumns[i+1], err)
			}
			fields[i] = v
		}

		o := Observation{
			ID:        rec[0],
			Mass:      fields[0],
			Radius:    fields[1],
			VTotal:    fields[2],
			VLOS:      fields[3],
			ObservedZ: fields[4],
			Sigma:     fields[5],
		}
		if err := o.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, o)
	}
	return out, nil
}

// ImportCSV loads a catalog file into the store.
func (s *Store) ImportCSV(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	observations, err := ReadCSV(f)
	if err != nil {
		return 0, err
	}
	if err := s.Put(observations); err != nil {
		return 0, err
	}
	return len(observations), nil
}

// #endregion read
