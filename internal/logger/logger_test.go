package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevelStrings(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{FatalLevel, "FATAL"},
		{Level(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.level.String())
		})
	}
}

func TestLogLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, WarnLevel)

	log.Debug("debug message")
	assert.Empty(t, buf.String(), "debug should be filtered at warn level")

	log.Info("info message")
	assert.Empty(t, buf.String(), "info should be filtered at warn level")

	log.Warn("warn message")
	assert.NotEmpty(t, buf.String(), "warn should be logged at warn level")
}

func TestStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, InfoLevel)

	log.Info("test message",
		String("key1", "value1"),
		Int("key2", 42),
		Bool("key3", true),
		Err(errors.New("test error")),
		Duration("duration", 1000000000),
	)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "test message", entry["message"])
	assert.Equal(t, "value1", entry["key1"])
	assert.Equal(t, float64(42), entry["key2"])
	assert.Equal(t, true, entry["key3"])
	assert.Equal(t, "test error", entry["error"])
	assert.Equal(t, "1s", entry["duration"])
	assert.NotNil(t, entry["timestamp"])
	assert.NotNil(t, entry["caller"])
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, InfoLevel)

	log := base.WithFields(String("component", "mde"), String("version", "1"))
	log.Info("test message")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "mde", entry["component"])
	assert.Equal(t, "1", entry["version"])
}

func TestWithContextAttachesRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, InfoLevel)

	ctx := WithRequestID(context.Background(), "req-123")
	log.WithContext(ctx).Info("test message")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-123", entry["request_id"])
}

func TestForComponentStampsComponentField(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(New(&buf, InfoLevel))

	ForComponent("uds").Info("started")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "uds", entry["component"])
}

func TestSetLevelAndGetLevel(t *testing.T) {
	log := New(&bytes.Buffer{}, InfoLevel)
	assert.Equal(t, InfoLevel, log.GetLevel())

	log.SetLevel(ErrorLevel)
	assert.Equal(t, ErrorLevel, log.GetLevel())
}

func TestFieldConstructors(t *testing.T) {
	t.Run("Err nil", func(t *testing.T) {
		field := Err(nil)
		assert.Equal(t, "error", field.Key)
		assert.Nil(t, field.Value)
	})

	t.Run("UID", func(t *testing.T) {
		field := UID("user-1")
		assert.Equal(t, "uid", field.Key)
		assert.Equal(t, "user-1", field.Value)
	})

	t.Run("Slug", func(t *testing.T) {
		field := Slug("abc123")
		assert.Equal(t, "slug", field.Key)
		assert.Equal(t, "abc123", field.Value)
	})

	t.Run("Recipient truncates to a short fingerprint", func(t *testing.T) {
		pubKey := make([]byte, 32)
		for i := range pubKey {
			pubKey[i] = byte(i)
		}
		field := Recipient(pubKey)
		assert.Equal(t, "recipient", field.Key)
		assert.Equal(t, "000102030405", field.Value)
	})

	t.Run("Recipient handles short keys", func(t *testing.T) {
		field := Recipient([]byte{0xAB})
		assert.Equal(t, "ab", field.Value)
	})
}

func BenchmarkLog(b *testing.B) {
	log := New(&bytes.Buffer{}, InfoLevel)

	b.Run("SimpleLog", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			log.Info("benchmark message")
		}
	})

	b.Run("LogWithFields", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			log.Info("benchmark message", String("key1", "value1"), Int("key2", 42))
		}
	})
}
