// Package mqtt bridges the door controller to an MQTT broker.
//
// State changes are published as retained JSON messages below a topic
// prefix, and commands published on <prefix>/target/set are forwarded to the
// controller.
package mqtt
