package events

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogPublisherWritesEvent(t *testing.T) {
	var buf bytes.Buffer
	p := LogPublisher{Log: slog.New(slog.NewJSONHandler(&buf, nil))}

	err := p.PublishAchievement(context.Background(), AchievementGranted{UserID: 9, Name: "Veteran", EarnedAt: time.Now()})
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "achievement granted", line["msg"])
	assert.Equal(t, "Veteran", line["name"])
}

func TestAchievementGrantedWireFormat(t *testing.T) {
	at := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	b, err := json.Marshal(AchievementGranted{UserID: 12, Nickname: "Ann", Name: "First Post", EarnedAt: at})
	require.NoError(t, err)
	assert.JSONEq(t, `{"userId":"12","nickname":"Ann","name":"First Post","earnedAt":"2024-02-03T04:05:06Z"}`, string(b))
}
