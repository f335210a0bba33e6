package node

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// sensorPayload is the JSON body returned by the node.
type sensorPayload struct {
	GarageOpened sensorFlag `json:"garageOpened"`
	GarageClosed sensorFlag `json:"garageClosed"`
}

// sensorFlag decodes the node's "1 means active" convention.
// Booleans are accepted too; any other number means inactive.
type sensorFlag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *sensorFlag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	switch {
	case bytes.Equal(data, []byte("null")):
		*f = false
		return nil
	case bytes.Equal(data, []byte("true")):
		*f = true
		return nil
	case bytes.Equal(data, []byte("false")):
		*f = false
		return nil
	}

	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("sensor flag %s: %w", data, err)
	}

	value, err := number.Float64()
	if err != nil {
		return fmt.Errorf("sensor flag %s: %w", data, err)
	}

	*f = value == 1

	return nil
}
