package timing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

var requiredColumns = []string{"byte_val", "timing", "is_target"}

// LoadCSV reads measurements written by CSVWriter.
func LoadCSV(r io.Reader) ([]Measurement, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("no data found in timing file")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing required column %q, found %v", name, header)
		}
	}
	predCol, hasPred := cols["predicted_key"]

	var ms []Measurement
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		byteVal, err := strconv.ParseUint(rec[cols["byte_val"]], 10, 8)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid byte_val: %w", line, err)
		}
		timing, err := strconv.ParseUint(rec[cols["timing"]], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid timing: %w", line, err)
		}

		m := Measurement{
			ByteVal:  byte(byteVal),
			Timing:   timing,
			IsTarget: rec[cols["is_target"]] == "1",
		}
		if hasPred {
			pk, err := strconv.ParseUint(rec[predCol], 16, 8)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid predicted_key: %w", line, err)
			}
			m.PredictedKey = byte(pk)
		}
		ms = append(ms, m)
	}

	if len(ms) == 0 {
		return nil, fmt.Errorf("no data found in timing file")
	}
	return ms, nil
}

// ByteStats aggregates the measurements of one plaintext byte value.
type ByteStats struct {
	ByteVal  byte    `json:"byte_val"`
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	IsTarget bool    `json:"is_target"`
}

// Summarize returns the timing mean and standard deviation of every byte
// value present in ms, ordered by byte value. IsTarget is taken from the
// first measurement of each value.
func Summarize(ms []Measurement) []ByteStats {
	var (
		timings [256][]float64
		target  [256]bool
	)
	for _, m := range ms {
		if len(timings[m.ByteVal]) == 0 {
			target[m.ByteVal] = m.IsTarget
		}
		timings[m.ByteVal] = append(timings[m.ByteVal], float64(m.Timing))
	}

	var out []ByteStats
	for b, xs := range timings {
		if len(xs) == 0 {
			continue
		}
		bs := ByteStats{
			ByteVal:  byte(b),
			Count:    len(xs),
			IsTarget: target[b],
		}
		if len(xs) > 1 {
			bs.Mean, bs.StdDev = stat.MeanStdDev(xs, nil)
		} else {
			bs.Mean = xs[0]
		}
		out = append(out, bs)
	}
	return out
}

// CacheLine is the cache line touched by the first-round lookup of byte b
// under key byte guess.
func CacheLine(b, guess byte) byte {
	return (b ^ guess) & 0xF0
}

// Candidate is the absolute correlation of one key byte guess.
type Candidate struct {
	KeyByte     byte    `json:"key_byte"`
	Correlation float64 `json:"correlation"`
}

// CandidateGroup is a set of guesses sharing one correlation. Guesses that
// agree on the high nibble predict the same cache lines and always tie.
type CandidateGroup struct {
	Correlation float64 `json:"correlation"`
	KeyBytes    []byte  `json:"key_bytes"`
}

// CorrelateKeyGuesses computes, for every key byte guess, the absolute
// Pearson correlation between the predicted cache line of each byte value
// and its mean timing. The result is indexed by guess.
func CorrelateKeyGuesses(stats []ByteStats) []Candidate {
	means := make([]float64, len(stats))
	for i, s := range stats {
		means[i] = s.Mean
	}

	pattern := make([]float64, len(stats))
	out := make([]Candidate, 256)
	for g := 0; g < 256; g++ {
		for i, s := range stats {
			pattern[i] = float64(CacheLine(s.ByteVal, byte(g)))
		}

		corr := math.Abs(stat.Correlation(pattern, means, nil))
		if math.IsNaN(corr) {
			corr = 0
		}
		out[g] = Candidate{KeyByte: byte(g), Correlation: corr}
	}
	return out
}

// RankCandidates groups candidates by correlation, highest first, and
// returns at most n groups. A non-positive n returns every group.
func RankCandidates(cs []Candidate, n int) []CandidateGroup {
	groups := make(map[float64][]byte)
	for _, c := range cs {
		groups[c.Correlation] = append(groups[c.Correlation], c.KeyByte)
	}

	out := make([]CandidateGroup, 0, len(groups))
	for corr, keys := range groups {
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		out = append(out, CandidateGroup{Correlation: corr, KeyBytes: keys})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Correlation > out[j].Correlation })

	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
