package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLifecycleHolderReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lifecycle.yml")
	content := []byte(`booking:
  cancellation_lead_time: 48h
  timezone: Asia/Jakarta
sla:
  first_proof: 12h
  revision_turnaround: 6h
  production_default: 96h
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	holder, err := NewLifecycleConfigHolder(Config{LifecycleConfigPath: path}, zap.NewNop())
	require.NoError(t, err)

	rules := holder.Get()
	assert.Equal(t, 48*time.Hour, rules.Booking.CancellationLeadTime)
	assert.Equal(t, "Asia/Jakarta", rules.Booking.Location().String())
	assert.Equal(t, 12*time.Hour, rules.SLA.FirstProof)
	assert.Equal(t, 6*time.Hour, rules.SLA.RevisionTurnaround)
	// untouched keys keep their defaults
	assert.Equal(t, 14*24*time.Hour, rules.Quote.Expiry)
	assert.Equal(t, 10, rules.Outbox.MaxAttempts)
}

func TestLifecycleHolderRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lifecycle.yml")
	require.NoError(t, os.WriteFile(path, []byte("quote:\n  expiry: -1h\n"), 0o600))

	_, err := NewLifecycleConfigHolder(Config{LifecycleConfigPath: path}, zap.NewNop())
	if err == nil {
		t.Fatalf("expected validation error for negative expiry")
	}
}

func TestNilHolderFallsBackToDefaults(t *testing.T) {
	var holder *LifecycleConfigHolder
	assert.Equal(t, DefaultLifecycleConfig(), holder.Get())
}
