package results

import (
	"fmt"
	"strconv"
)

// Output subdirectory names.
const (
	TrajectoryDir   = "Trajectory"
	InterferenceDir = "BodyInterference"
	DirectLOSDir    = "DirectLOS"
)

// Column headers.
var (
	TrajectoryHeader   = []string{"frame", "x", "y", "z", "w", "rx", "ry", "rz"}
	InterferenceHeader = []string{"frame", "no_los-to-total-ratio"}
)

// FileBase returns the per-sensor file name without extension.
func FileBase(sensorID string) string {
	return "sensor_" + sensorID
}

// FileName returns the per-sensor CSV file name.
func FileName(sensorID string) string {
	return FileBase(sensorID) + ".csv"
}

// FormatFloat renders v in its shortest round-trip decimal form.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatBool renders a direct-LOS cell.
func FormatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// ParseBool reads a direct-LOS cell.
func ParseBool(s string) (bool, error) {
	switch s {
	case "True":
		return true, nil
	case "False":
		return false, nil
	}
	return false, fmt.Errorf("invalid LOS cell %q", s)
}
