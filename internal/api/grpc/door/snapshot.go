package door

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/garage-door/internal/domain/door"
	"github.com/oshokin/garage-door/internal/service/controller"
)

// Snapshot struct field names.
const (
	fieldCurrent    = "current"
	fieldTarget     = "target"
	fieldObstructed = "obstructed"
	fieldWatching   = "watching"
	fieldUpdatedAt  = "updated_at"
)

// toProtoSnapshot converts a controller snapshot into a protobuf Struct.
func toProtoSnapshot(snapshot controller.Snapshot) (*structpb.Struct, error) {
	updatedAt := ""
	if !snapshot.UpdatedAt.IsZero() {
		updatedAt = snapshot.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}

	result, err := structpb.NewStruct(map[string]any{
		fieldCurrent:    snapshot.Current.String(),
		fieldTarget:     snapshot.Target.String(),
		fieldObstructed: snapshot.Obstructed,
		fieldWatching:   snapshot.Watching,
		fieldUpdatedAt:  updatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	return result, nil
}

// fromProtoSnapshot converts a protobuf Struct back into a controller snapshot.
func fromProtoSnapshot(message *structpb.Struct) (controller.Snapshot, error) {
	fields := message.GetFields()

	current, err := domain.ParseState(fields[fieldCurrent].GetStringValue())
	if err != nil {
		return controller.Snapshot{}, fmt.Errorf("decode current state: %w", err)
	}

	target, err := domain.ParseState(fields[fieldTarget].GetStringValue())
	if err != nil {
		return controller.Snapshot{}, fmt.Errorf("decode target state: %w", err)
	}

	var updatedAt time.Time
	if raw := fields[fieldUpdatedAt].GetStringValue(); raw != "" {
		updatedAt, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return controller.Snapshot{}, fmt.Errorf("decode update time: %w", err)
		}
	}

	return controller.Snapshot{
		Current:    current,
		Target:     target,
		Obstructed: fields[fieldObstructed].GetBoolValue(),
		Watching:   fields[fieldWatching].GetBoolValue(),
		UpdatedAt:  updatedAt,
	}, nil
}
