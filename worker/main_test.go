package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/tradeskills/course-radar/backend/internal/models"
)

type stubRunner struct {
	reqs []models.RefreshRequest
	err  error
}

func (s *stubRunner) Run(_ context.Context, req models.RefreshRequest) (models.RefreshResponse, error) {
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return models.RefreshResponse{}, s.err
	}
	return models.RefreshResponse{Success: true, TotalProgrammes: 7, Elapsed: "1s"}, nil
}

func TestProcessMessageRunsRequest(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := &stubRunner{}

	payload := models.RefreshRequest{Batch: 4, ForceRefresh: true}
	data, err := json.Marshal(payload)
	require.NoError(t, err)

	msg := kafka.Message{Value: data}
	require.NoError(t, processMessage(context.Background(), log, runner, msg))

	require.Len(t, runner.reqs, 1)
	require.Equal(t, 4, runner.reqs[0].Batch)
	require.True(t, runner.reqs[0].ForceRefresh)
}

func TestProcessMessageEmptyBodyIsFullRefresh(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := &stubRunner{}

	require.NoError(t, processMessage(context.Background(), log, runner, kafka.Message{}))

	require.Len(t, runner.reqs, 1)
	require.Equal(t, models.RefreshRequest{}, runner.reqs[0])
}

func TestProcessMessageRejectsMalformedBody(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := &stubRunner{}

	msg := kafka.Message{Value: []byte("{not json")}
	require.Error(t, processMessage(context.Background(), log, runner, msg))
	require.Empty(t, runner.reqs, "malformed messages must not reach the engine")
}

func TestProcessMessagePropagatesRunError(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	wantErr := errors.New("cache write failed")
	runner := &stubRunner{err: wantErr}

	data, err := json.Marshal(models.RefreshRequest{MergeAll: true})
	require.NoError(t, err)

	got := processMessage(context.Background(), log, runner, kafka.Message{Value: data})
	require.ErrorIs(t, got, wantErr)
}
