package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"emotion-diary/internal/domain"
	"emotion-diary/internal/speech"
)

type fakeBlobStore struct {
	blobs []domain.AudioBlob
	err   error
}

func (f *fakeBlobStore) Put(ctx context.Context, blob domain.AudioBlob) error {
	if f.err != nil {
		return f.err
	}
	f.blobs = append(f.blobs, blob)
	return nil
}

type deadlineTranscriber struct {
	deadline time.Time
	ok       bool
}

func (d *deadlineTranscriber) Transcribe(ctx context.Context, audio domain.AudioBlob) (string, error) {
	d.deadline, d.ok = ctx.Deadline()
	return "ok", nil
}

var blobKeyRe = regexp.MustCompile(`^u1/2026-01-01/[0-9a-f-]{36}\.wav$`)

func TestAudioServiceUploadsAndTranscribes(t *testing.T) {
	blobs := &fakeBlobStore{}
	tr := &speech.MockTranscriber{Transcript: "  今日は楽しかった \n"}
	svc := NewAudioService(zap.NewNop(), blobs, tr, 30*time.Second, 1024)

	res, err := svc.Transcribe(context.Background(), "u1", "2026-01-01", AudioUpload{
		Filename:    "Memo.WAV",
		ContentType: "audio/wav",
		Data:        []byte("RIFF...."),
	})
	require.NoError(t, err)
	assert.Equal(t, "今日は楽しかった", res.Transcript)
	assert.Regexp(t, blobKeyRe, res.BlobKey)
	require.Len(t, blobs.blobs, 1)
	assert.Equal(t, res.BlobKey, blobs.blobs[0].Key)
	assert.Equal(t, res.BlobKey, tr.Last.Key)
}

func TestAudioServiceValidation(t *testing.T) {
	svc := NewAudioService(zap.NewNop(), &fakeBlobStore{}, &speech.MockTranscriber{Transcript: "x"}, time.Second, 4)

	_, err := svc.Transcribe(context.Background(), "", "2026-01-01", AudioUpload{Data: []byte("a")})
	assert.ErrorIs(t, err, ErrAudioInvalid)
	_, err = svc.Transcribe(context.Background(), "u1", "2026-01-01", AudioUpload{})
	assert.ErrorIs(t, err, ErrAudioInvalid)
	_, err = svc.Transcribe(context.Background(), "u1", "2026-01-01", AudioUpload{Data: []byte("too big")})
	assert.ErrorIs(t, err, ErrAudioTooLarge)
}

func TestAudioServiceUpstreamFailures(t *testing.T) {
	_, err := NewAudioService(zap.NewNop(), &fakeBlobStore{err: errors.New("disk full")}, &speech.MockTranscriber{Transcript: "x"}, time.Second, 0).
		Transcribe(context.Background(), "u1", "d", AudioUpload{Data: []byte("a")})
	assert.ErrorContains(t, err, "upload audio")

	_, err = NewAudioService(zap.NewNop(), &fakeBlobStore{}, &speech.MockTranscriber{Err: errors.New("stt down")}, time.Second, 0).
		Transcribe(context.Background(), "u1", "d", AudioUpload{Data: []byte("a")})
	assert.ErrorContains(t, err, "transcribe audio")

	_, err = NewAudioService(zap.NewNop(), &fakeBlobStore{}, &speech.MockTranscriber{Transcript: "  "}, time.Second, 0).
		Transcribe(context.Background(), "u1", "d", AudioUpload{Data: []byte("a")})
	assert.ErrorIs(t, err, ErrEmptyTranscript)
}

func TestAudioServiceBoundsTranscription(t *testing.T) {
	tr := &deadlineTranscriber{}
	svc := NewAudioService(zap.NewNop(), nil, tr, 30*time.Second, 0)

	start := time.Now()
	_, err := svc.Transcribe(context.Background(), "u1", "d", AudioUpload{Data: []byte("a")})
	require.NoError(t, err)
	require.True(t, tr.ok)
	assert.WithinDuration(t, start.Add(30*time.Second), tr.deadline, 2*time.Second)
}
