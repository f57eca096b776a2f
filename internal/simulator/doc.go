// Package simulator runs downstream simulators over the trajectory files of
// a finished LOS run.
//
// Simulators are described by a TOML plugin descriptor:
//
//	[[simulator]]
//	name = "IMU"
//	file = "imu_simulator.py"
//	interpreter = "python3"
//
//	  [[simulator.group]]
//	  x = "time (s)"
//	  y = "acceleration (m/s^2)"
//	  variables = ["ax", "ay", "az"]
//
// Each group is one plottable unit pair; its variables are the outputs a
// user may select per sensor. Plugins with a file run as a child process:
//
//	<interpreter> <plugin dir>/<file> <run>/Trajectory/sensor_<ID>.csv <fps> <variables...>
//
// The Trajectory base plugin and the Channel simulator are built in.
package simulator
