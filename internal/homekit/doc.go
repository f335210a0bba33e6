// Package homekit exposes the door controller as a HomeKit garage door opener.
package homekit
