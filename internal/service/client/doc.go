// Package client implements the garage-door-ctl commands.
//
// Each command loads the settings, connects to the door server over gRPC and
// logs the resulting door snapshot.
package client
