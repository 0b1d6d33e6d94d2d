package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		name      string
		debug     bool
		level     string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{name: "default", wantWarn: true},
		{name: "debug flag", debug: true, wantDebug: true, wantInfo: true, wantWarn: true},
		{name: "env info", level: "info", wantInfo: true, wantWarn: true},
		{name: "env overrides debug flag", debug: true, level: "error"},
		{name: "unknown env keeps default", level: "chatty", wantWarn: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := newLogger(&buf, tt.debug, tt.level)

			buf.Reset()
			log.Debug("d")
			assert.Equal(t, tt.wantDebug, buf.Len() > 0, "debug")

			buf.Reset()
			log.Info("i")
			assert.Equal(t, tt.wantInfo, buf.Len() > 0, "info")

			buf.Reset()
			log.Warn("w")
			assert.Equal(t, tt.wantWarn, buf.Len() > 0, "warn")
		})
	}
}

func TestNewLogger_DropsTimeOutsideDebug(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, false, "").Warn("deploying", "unit", "CapybaraToken")

	assert.NotContains(t, buf.String(), "time=")
	assert.Contains(t, buf.String(), "unit=CapybaraToken")
}

func TestShortPath(t *testing.T) {
	assert.Equal(t, "internal/usecase/orchestrator.go", shortPath("/home/ci/src/capydeploy/internal/usecase/orchestrator.go"))
	assert.Equal(t, "usecase/orchestrator.go", shortPath("/opt/build/usecase/orchestrator.go"))
	assert.Equal(t, "main.go", shortPath("main.go"))
}
