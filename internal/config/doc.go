// Package config defines the settings shared by the garage-door binaries and
// helpers to load, validate and save them in YAML format.
//
// Besides the connection to the relay/sensor node the file carries the watch
// timing (refresh interval and maximum duration) and the optional HomeKit,
// MQTT and InfluxDB integrations.
package config
