package config

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"ADDR", "PORT", "VISITOR_STORE", "BLOB_BACKEND", "ORACLE_TIMEOUT", "VISIT_TIMEZONE", "KAFKA_BROKERS", "CORS_ORIGINS", "AUDIT_MEMORY_CAPACITY"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, int64(5*1024*1024), cfg.Server.MaxUploadBytes)
	assert.Equal(t, "mongo", cfg.Storage.Backend)
	assert.Equal(t, "s3", cfg.Blob.Backend)
	assert.Equal(t, 30*time.Second, cfg.Oracle.Timeout)
	assert.Equal(t, time.UTC, cfg.Calendar.Location)
	assert.Empty(t, cfg.Audit.KafkaBrokers)
	assert.Equal(t, 1000, cfg.Audit.MemoryCapacity)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("ADDR", "")
	t.Setenv("ORACLE_TIMEOUT", "2s")
	t.Setenv("PYTHON_SERVICE_URL", "http://oracle:5000/")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("VISIT_TIMEZONE", "Asia/Colombo")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")

	cfg := FromEnv()

	assert.Equal(t, ":8081", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Oracle.Timeout)
	assert.Equal(t, "http://oracle:5000", cfg.Oracle.URL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Audit.KafkaBrokers)
	assert.Equal(t, "Asia/Colombo", cfg.Calendar.Location.String())
	assert.Equal(t, 25, cfg.Storage.MaxOpenConns)
}
