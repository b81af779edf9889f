package render

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	errs "screenlink/pkg/errors"
)

func TestPlayerSpawnFailureIsDecoderInit(t *testing.T) {
	f := &PlayerFactory{
		Command: []string{"definitely-not-a-player-binary"},
		Logger:  zaptest.NewLogger(t).Sugar(),
	}
	_, err := f.NewSink(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindDecoderInitFailed))
}

func TestPlayerFeedsStdin(t *testing.T) {
	f := &PlayerFactory{
		Command: []string{"cat"},
		Logger:  zaptest.NewLogger(t).Sugar(),
	}
	sink, err := f.NewSink(context.Background())
	require.NoError(t, err)

	require.NoError(t, sink.WriteAccessUnit([]byte{0, 0, 0, 1, 0x67}))
	assert.NoError(t, sink.Close())
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	f := &WriterFactory{W: &buf}
	sink, err := f.NewSink(context.Background())
	require.NoError(t, err)

	require.NoError(t, sink.WriteAccessUnit([]byte("abc")))
	require.NoError(t, sink.WriteAccessUnit([]byte("def")))
	require.NoError(t, sink.Close())
	assert.Equal(t, "abcdef", buf.String())
}
