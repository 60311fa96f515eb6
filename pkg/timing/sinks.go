package timing

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var csvHeader = []string{"byte_val", "timing", "is_target", "predicted_key"}

// CSVWriter writes one row per measurement. Predicted keys are written in
// hex without a prefix.
type CSVWriter struct {
	w           *csv.Writer
	wroteHeader bool
}

func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

func (c *CSVWriter) WriteMeasurement(m Measurement) error {
	if !c.wroteHeader {
		if err := c.w.Write(csvHeader); err != nil {
			return err
		}
		c.wroteHeader = true
	}

	isTarget := "0"
	if m.IsTarget {
		isTarget = "1"
	}

	record := []string{
		strconv.Itoa(int(m.ByteVal)),
		strconv.FormatUint(m.Timing, 10),
		isTarget,
		strconv.FormatUint(uint64(m.PredictedKey), 16),
	}
	if err := c.w.Write(record); err != nil {
		return err
	}

	c.w.Flush()
	return c.w.Error()
}

func (c *CSVWriter) WritePrediction(Prediction) error {
	return nil
}

// PredictionWriter logs every key prediction as a line of text.
type PredictionWriter struct {
	w *bufio.Writer
}

func NewPredictionWriter(w io.Writer) *PredictionWriter {
	return &PredictionWriter{w: bufio.NewWriter(w)}
}

func (p *PredictionWriter) WriteMeasurement(Measurement) error {
	return nil
}

func (p *PredictionWriter) WritePrediction(pr Prediction) error {
	if _, err := fmt.Fprintf(p.w, "After %d measurements, predicted key byte: 0x%x\n", pr.Measurements, pr.KeyByte); err != nil {
		return err
	}
	return p.w.Flush()
}
