// Package influx records door state changes as InfluxDB points.
package influx
