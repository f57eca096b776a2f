// Package results writes a finished LOS run to disk as per-sensor CSV files
// and reads the trajectory format back.
//
// A run directory holds three subdirectories, each with one file per sensor
// named sensor_<ID>.csv:
//
//	Trajectory/        frame,x,y,z,w,rx,ry,rz
//	BodyInterference/  frame,no_los-to-total-ratio
//	DirectLOS/         frame,<name of every other sensor in roster order>
//
// Direct-LOS cells are True or False. Numbers use the shortest decimal form
// that round-trips to the same float64.
package results
