// Package controller reconciles the requested (target) door state with the
// state observed through the node's sensors.
//
// Controller is the entry point: SetTarget toggles the relay through the
// Issuer and starts a watch session that polls the sensors on a fixed
// interval until the target is reached or the time budget runs out, in which
// case the door is declared obstructed. Current performs one immediate read.
// State changes are pushed to Observers.
package controller
