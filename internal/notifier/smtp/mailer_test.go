package smtp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildBodyIncludesReportAndURLs(t *testing.T) {
	t.Parallel()

	m := New(Config{Username: "bot@example.com", Password: "secret"}, zap.NewNop())
	m.now = func() time.Time {
		return time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	}

	body := m.buildBody("Competitor dropped prices by 20%.", []string{
		"https://rival.example/pricing",
		"",
		"https://rival.example/products",
	})

	assert.Contains(t, body, "Generated: 2026-03-01 12:30:00 UTC")
	assert.Contains(t, body, "  - https://rival.example/pricing")
	assert.Contains(t, body, "  - https://rival.example/products")
	assert.NotContains(t, body, "  - \n")
	assert.Contains(t, body, "Competitor dropped prices by 20%.")
}

func TestSendRequiresCredentials(t *testing.T) {
	t.Parallel()

	m := New(Config{}, zap.NewNop())
	err := m.Send(context.Background(), "user@example.com", "report", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials")
}

func TestNewAppliesSubmissionDefaults(t *testing.T) {
	t.Parallel()

	m := New(Config{Username: "bot@example.com", Password: "secret"}, zap.NewNop())
	assert.Equal(t, "smtp.gmail.com", m.cfg.Host)
	assert.Equal(t, 587, m.cfg.Port)
	assert.Equal(t, "bot@example.com", m.cfg.From)
}

func TestSendRejectsInvalidRecipient(t *testing.T) {
	t.Parallel()

	m := New(Config{Username: "bot@example.com", Password: "secret"}, zap.NewNop())
	err := m.Send(context.Background(), "not-an-address", "report", nil)
	require.Error(t, err)
}
