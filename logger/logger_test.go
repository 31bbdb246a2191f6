package logger

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, parseLevel("debug"))
	assert.Equal(t, logrus.WarnLevel, parseLevel("WARN"))
	assert.Equal(t, logrus.ErrorLevel, parseLevel("ERROR"))
	assert.Equal(t, logrus.InfoLevel, parseLevel(""))
}

func TestWithErrorIncludesComponent(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)

	WithError(errors.New("boom"), "issue_service").Error("create failed")

	out := buf.String()
	assert.Contains(t, out, "component=issue_service")
	assert.Contains(t, out, "error=boom")
	assert.Contains(t, out, "create failed")
}
