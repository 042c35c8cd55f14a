package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

func TestNewLoggerConfig(t *testing.T) {
	config := NewLoggerConfig()
	test.That(t, config.OutputPaths, test.ShouldResemble, []string{"stderr"})
	test.That(t, config.ErrorOutputPaths, test.ShouldResemble, []string{"stderr"})
	test.That(t, config.Level.Level(), test.ShouldEqual, zapcore.InfoLevel)
	test.That(t, config.Encoding, test.ShouldEqual, "console")
	test.That(t, config.DisableStacktrace, test.ShouldBeTrue)
}

func TestLoggerLevels(t *testing.T) {
	info := NewLogger("info")
	test.That(t, info.Desugar().Core().Enabled(zapcore.InfoLevel), test.ShouldBeTrue)
	test.That(t, info.Desugar().Core().Enabled(zapcore.DebugLevel), test.ShouldBeFalse)

	debug := NewDebugLogger("debug")
	test.That(t, debug.Desugar().Core().Enabled(zapcore.DebugLevel), test.ShouldBeTrue)
}
