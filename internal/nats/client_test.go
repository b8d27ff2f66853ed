package nats

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreamSubjectsCoverPublishedSubjects(t *testing.T) {
	covered := func(subject string) bool {
		for _, s := range StreamSubjects {
			prefix := s[:len(s)-1] // strip ">"
			if len(subject) > len(prefix) && subject[:len(prefix)] == prefix {
				return true
			}
		}
		return false
	}

	assert.True(t, covered(SubjectProducts))
	assert.True(t, covered(SubjectRuns))
}

func TestNew_Unreachable(t *testing.T) {
	_, err := New(context.Background(), "nats://127.0.0.1:1")
	assert.ErrorContains(t, err, "connect to nats")
}
