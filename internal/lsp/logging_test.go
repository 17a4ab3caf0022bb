package lsp

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientHandler_ForwardsAtLevel(t *testing.T) {
	t.Parallel()
	var sent []LogMessageParams
	var local bytes.Buffer
	next := slog.NewTextHandler(&local, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(newClientHandler(next, slog.LevelInfo, func(p LogMessageParams) {
		sent = append(sent, p)
	}))

	logger.Debug("quiet", "k", 1)
	logger.Info("lsp.open", "path", "/m/a.sqf")
	logger.Warn("slow")
	logger.Error("broken", "err", "boom")

	require.Len(t, sent, 3)
	assert.Equal(t, LogMessageParams{Type: MessageInfo, Message: "lsp.open path=/m/a.sqf"}, sent[0])
	assert.Equal(t, MessageWarning, sent[1].Type)
	assert.Equal(t, LogMessageParams{Type: MessageError, Message: "broken err=boom"}, sent[2])

	assert.Contains(t, local.String(), "msg=quiet")
	assert.Contains(t, local.String(), "msg=lsp.open")
}

func TestClientHandler_AttrsAndGroups(t *testing.T) {
	t.Parallel()
	var sent []LogMessageParams
	next := slog.NewTextHandler(&bytes.Buffer{}, nil)
	logger := slog.New(newClientHandler(next, slog.LevelInfo, func(p LogMessageParams) {
		sent = append(sent, p)
	}))

	logger.With("session", 2).WithGroup("edit").Info("replace", "path", "a.sqf")

	require.Len(t, sent, 1)
	assert.Equal(t, "replace session=2 edit.path=a.sqf", sent[0].Message)
}

func TestMessageType(t *testing.T) {
	t.Parallel()
	assert.Equal(t, MessageError, messageType(slog.LevelError+4))
	assert.Equal(t, MessageWarning, messageType(slog.LevelWarn))
	assert.Equal(t, MessageInfo, messageType(slog.LevelInfo))
	assert.Equal(t, MessageLog, messageType(slog.LevelDebug))
}
