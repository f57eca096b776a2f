package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/banshee-data/bodysim/internal/geometry"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// TrajectoryRow is one line of a trajectory file.
type TrajectoryRow struct {
	Frame     int
	Transform geometry.Transform
}

// TrajectoryRecord formats a row as CSV fields.
func TrajectoryRecord(frame int, tf geometry.Transform) []string {
	p, q := tf.Position, tf.Orientation
	return []string{
		strconv.Itoa(frame),
		FormatFloat(p.X), FormatFloat(p.Y), FormatFloat(p.Z),
		FormatFloat(q.Real), FormatFloat(q.Imag), FormatFloat(q.Jmag), FormatFloat(q.Kmag),
	}
}

// WriteTrajectory writes the header and rows to w.
func WriteTrajectory(w io.Writer, rows []TrajectoryRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TrajectoryHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(TrajectoryRecord(r.Frame, r.Transform)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTrajectory parses a trajectory file including its header.
func ReadTrajectory(r io.Reader) ([]TrajectoryRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(TrajectoryHeader)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("trajectory: empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("trajectory header: %w", err)
	}
	if !slices.Equal(header, TrajectoryHeader) {
		return nil, fmt.Errorf("trajectory: unexpected header %v", header)
	}

	var rows []TrajectoryRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("trajectory: %w", err)
		}
		row, err := parseTrajectoryRecord(rec)
		if err != nil {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("trajectory line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
}

func parseTrajectoryRecord(rec []string) (TrajectoryRow, error) {
	frame, err := strconv.Atoi(rec[0])
	if err != nil {
		return TrajectoryRow{}, fmt.Errorf("frame: %w", err)
	}
	var v [7]float64
	for i := range v {
		v[i], err = strconv.ParseFloat(rec[i+1], 64)
		if err != nil {
			return TrajectoryRow{}, fmt.Errorf("%s: %w", TrajectoryHeader[i+1], err)
		}
	}
	return TrajectoryRow{
		Frame: frame,
		Transform: geometry.Transform{
			Position:    r3.Vec{X: v[0], Y: v[1], Z: v[2]},
			Orientation: quat.Number{Real: v[3], Imag: v[4], Jmag: v[5], Kmag: v[6]},
		},
	}, nil
}
