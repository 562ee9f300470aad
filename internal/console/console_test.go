package console

import "testing"

import "github.com/sirupsen/logrus"
import "github.com/stretchr/testify/assert"

func TestNewSetsRequestedLevel(t *testing.T) {
	log := New(logrus.DebugLevel)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestNewProgressIsSafeToDriveWithoutATerminal(t *testing.T) {
	// Test runs are never attached to a terminal, so this always exercises
	// the no-op path; it still must not panic across the full lifecycle.
	p := NewProgress("test", 100)
	p.SetTotal(200)
	p.Add(50)
	p.Done()
}
