package logger

import (
	"context"
	"testing"
)

func Test_EnabledSubSystem_PromotesToMain(t *testing.T) {
	config := NewDevelopmentConfig()
	config.EnableSubSystem("Relay")
	ctx := ContextWithLogConfig(context.Background(), config)

	subCtx := ContextWithLogSubSystem(ctx, "Relay")
	Info(subCtx, "promoted entry")

	if !config.IncludedSubSystems["Relay"] {
		t.Error("expected Relay to be marked included")
	}
}

func Test_DisabledSubSystem_DoesNotPromote(t *testing.T) {
	config := NewDevelopmentConfig()
	ctx := ContextWithLogConfig(context.Background(), config)

	subCtx := ContextWithLogSubSystem(ctx, "Validator")
	Info(subCtx, "not promoted, only visible if Validator has its own SystemConfig")

	if config.IncludedSubSystems["Validator"] {
		t.Error("expected Validator not to be included by default")
	}
}

func Test_ContextWithNoLogger_DoesNotPanic(t *testing.T) {
	ctx := ContextWithNoLogger(context.Background())
	Info(ctx, "discarded entry %d", 1)
	Warn(ctx, "discarded warning")
	Error(ctx, "discarded error")
}

func Test_NewFileLogger(t *testing.T) {
	logFile := t.TempDir() + "/relay.log"

	sc, err := NewFileLogger(logFile)
	if err != nil {
		t.Fatalf("unexpected error : %s", err)
	}

	config := &Config{Main: sc, SubSystems: make(map[string]*SystemConfig),
		IncludedSubSystems: make(map[string]bool)}
	ctx := ContextWithLogConfig(context.Background(), config)

	Info(ctx, "written to file")
}
