// Package node talks to the relay/sensor node of the garage.
//
// The node is a small HTTP device: GET on its base URL returns the two
// proximity sensors, POST on /relay with {"toggle": true} pulses the relay.
package node
