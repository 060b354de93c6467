/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blackeyesartisan/shopkit/log"
	"github.com/blackeyesartisan/shopkit/log/logtest"
)

func TestMaskingLogger(t *testing.T) {
	recorder := logtest.NewRecorder()
	logger := log.NewMaskingLogger(recorder, log.NewMasker(log.DefaultMasks))

	logger.Error("request failed: api_key=123",
		log.String("form", "api_key=123&folder=medusa"),
		log.Bytes("body", []byte(`{"password": "qwerty"}`)),
		log.Error(errors.New("GET /resource?api_secret=xyz failed")),
		log.Int("attempt", 1),
	)
	logger.Warnf("api_key=%d", 42)
	logger.With(log.String("auth", "token=abc")).Info("plain")
	logger.AtLevel(log.LevelInfo, func(logFunc log.LogFunc) {
		logFunc("signature=deadbeef")
	})

	entries := recorder.Entries()
	require.Len(t, entries, 4)

	require.Equal(t, "request failed: api_key=***", entries[0].Text)
	require.Equal(t, "api_key=***&folder=medusa", entries[0].FieldString("form"))
	body, ok := entries[0].FindField("body")
	require.True(t, ok)
	require.Equal(t, `{"password": "***"}`, string(body.Bytes))
	errField, ok := entries[0].FindField("error")
	require.True(t, ok)
	require.EqualError(t, errField.Any.(error), "GET /resource?api_secret=*** failed")
	attempt, ok := entries[0].FindField("attempt")
	require.True(t, ok)
	require.Equal(t, int64(1), attempt.Int)

	require.Equal(t, "api_key=***", entries[1].Text)
	require.Equal(t, log.LevelWarn, entries[1].Level)

	require.Equal(t, "token=***", entries[2].FieldString("auth"))
	require.Equal(t, "signature=***", entries[3].Text)
}
