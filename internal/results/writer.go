package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/banshee-data/bodysim/internal/fsutil"
	"github.com/banshee-data/bodysim/internal/geometry"
	"github.com/banshee-data/bodysim/internal/los"
	"github.com/banshee-data/bodysim/internal/monitoring"
)

var logf = monitoring.Component("Results")

// Writer writes run results under Dir. It implements los.ResultSink.
type Writer struct {
	FS  fsutil.FileSystem
	Dir string
}

// NewWriter returns a Writer rooted at dir. A nil fs uses the host filesystem.
func NewWriter(fs fsutil.FileSystem, dir string) *Writer {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	return &Writer{FS: fs, Dir: dir}
}

// Path returns the location of a sensor's file in one of the output
// subdirectories.
func (w *Writer) Path(subdir, sensorID string) string {
	return filepath.Join(w.Dir, subdir, FileName(sensorID))
}

// WriteResults writes the three files of every roster sensor. Every file is
// closed before it returns; failures wrap los.ErrWriteResults.
func (w *Writer) WriteResults(res *los.Result) error {
	if res == nil {
		return fmt.Errorf("%w: nil result", los.ErrWriteResults)
	}
	for _, sub := range []string{TrajectoryDir, InterferenceDir, DirectLOSDir} {
		if err := w.FS.MkdirAll(filepath.Join(w.Dir, sub), 0o755); err != nil {
			return fmt.Errorf("%w: %w", los.ErrWriteResults, err)
		}
	}

	for _, sensor := range res.Sensors {
		recs := res.Records[sensor.ID]
		if err := w.writeFile(w.Path(TrajectoryDir, sensor.ID), TrajectoryHeader, recs, trajectoryRow); err != nil {
			return err
		}
		if err := w.writeFile(w.Path(InterferenceDir, sensor.ID), InterferenceHeader, recs, interferenceRow); err != nil {
			return err
		}
		if err := w.writeFile(w.Path(DirectLOSDir, sensor.ID), directLOSHeader(res, sensor.ID), recs, directLOSRow); err != nil {
			return err
		}
	}

	logf("wrote %d sensors x %d frames to %s", len(res.Sensors), res.FrameCount(), w.Dir)
	return nil
}

func directLOSHeader(res *los.Result, sensorID string) []string {
	others := res.Others(sensorID)
	header := make([]string, 0, len(others)+1)
	header = append(header, "frame")
	for _, o := range others {
		header = append(header, o.Label())
	}
	return header
}

func trajectoryRow(r los.FrameRecord) []string {
	return TrajectoryRecord(r.Frame, geometry.Transform{Position: r.Position, Orientation: r.Orientation})
}

func interferenceRow(r los.FrameRecord) []string {
	return []string{strconv.Itoa(r.Frame), FormatFloat(r.InterferenceRatio)}
}

func directLOSRow(r los.FrameRecord) []string {
	row := make([]string, 0, len(r.DirectLOS)+1)
	row = append(row, strconv.Itoa(r.Frame))
	for _, clear := range r.DirectLOS {
		row = append(row, FormatBool(clear))
	}
	return row
}

func (w *Writer) writeFile(path string, header []string, recs []los.FrameRecord, row func(los.FrameRecord) []string) (err error) {
	f, err := w.FS.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", los.ErrWriteResults, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close %s: %w", los.ErrWriteResults, path, cerr)
		}
	}()

	if err := writeCSV(f, header, recs, row); err != nil {
		return fmt.Errorf("%w: %s: %w", los.ErrWriteResults, path, err)
	}
	return nil
}

func writeCSV(w io.Writer, header []string, recs []los.FrameRecord, row func(los.FrameRecord) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range recs {
		if err := cw.Write(row(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
