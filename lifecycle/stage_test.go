package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageKind_String(t *testing.T) {
	tests := []struct {
		kind     StageKind
		expected string
	}{
		{StageInit, "init"},
		{StageAvailable, "available"},
		{StageErrored, "errored"},
		{StageKind(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			assert.Equal(t, test.expected, test.kind.String())
		})
	}
}

func TestServiceID_String(t *testing.T) {
	tests := []struct {
		id       ServiceID
		expected string
	}{
		{ServiceConnectionManager, "connection-manager"},
		{ServiceDiscovery, "discovery"},
		{ServiceTimer, "timer"},
		{ServiceID(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			assert.Equal(t, test.expected, test.id.String())
		})
	}
}

func TestTerminatedError_Message(t *testing.T) {
	err := &TerminatedError{Reason: ReasonPublishAfterClose}
	assert.Equal(t, "Terminated: Connection Closed.", err.Error())
}
