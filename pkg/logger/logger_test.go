package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/Hamzak1712/supervisor-works/config"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LogConfig
		wantErr bool
	}{
		{"json", config.LogConfig{Level: "info", Format: "json"}, false},
		{"console", config.LogConfig{Level: "debug", Format: "console"}, false},
		{"default format", config.LogConfig{Level: "warn"}, false},
		{"bad level", config.LogConfig{Level: "verbose", Format: "json"}, true},
		{"bad format", config.LogConfig{Level: "info", Format: "xml"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(&tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("wantErr=%v, got %v", tt.wantErr, err)
			}
			if err == nil && logger == nil {
				t.Fatal("expected logger")
			}
		})
	}
}

func TestNewLogger_Level(t *testing.T) {
	logger, err := NewLogger(&config.LogConfig{Level: "warn", Format: "json"})
	if err != nil {
		t.Fatalf("初始化日志失败: %v", err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("warn 级别下不应输出 info 日志")
	}
	if !logger.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("warn 级别下应输出 error 日志")
	}
}
