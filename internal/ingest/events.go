package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidEvent marks events that cannot be decoded or lack their identifying fields. They
// are acknowledged and skipped and do not count against the breaker.
var ErrInvalidEvent = errors.New("invalid event")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidEvent, fmt.Sprintf(format, args...))
}

// IsInvalid reports whether err marks an event that is skipped.
func IsInvalid(err error) bool { return errors.Is(err, ErrInvalidEvent) }

// RdfParseEvent carries the internal JSON model of a parsed resource.
type RdfParseEvent struct {
	ResourceType string `avro:"resourceType" json:"resourceType" validate:"required"`
	FdkID        string `avro:"fdkId" json:"fdkId" validate:"required"`
	Data         string `avro:"data" json:"data"`
	Timestamp    int64  `avro:"timestamp" json:"timestamp" validate:"gt=0"`
}

// ResourceEvent is the graph event shared by all resource streams. Type is
// <RESOURCE_TYPE>_<ACTION>, for example DATASET_HARVESTED; Graph is Turtle.
type ResourceEvent struct {
	Type      string `avro:"type" json:"type" validate:"required"`
	FdkID     string `avro:"fdkId" json:"fdkId" validate:"required"`
	Graph     string `avro:"graph" json:"graph"`
	Timestamp int64  `avro:"timestamp" json:"timestamp" validate:"gt=0"`
}

type Action string

const (
	ActionHarvested Action = "HARVESTED"
	ActionReasoned  Action = "REASONED"
	ActionRemoved   Action = "REMOVED"
	ActionUnknown   Action = ""
)

// Action derives the action from the event type suffix.
func (e *ResourceEvent) Action() Action {
	for _, a := range []Action{ActionHarvested, ActionReasoned, ActionRemoved} {
		if strings.HasSuffix(e.Type, "_"+string(a)) {
			return a
		}
	}
	return ActionUnknown
}
