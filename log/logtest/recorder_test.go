/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blackeyesartisan/shopkit/log"
)

func TestRecorder(t *testing.T) {
	rec := NewRecorder()
	rec.With(log.String("component", "resend")).Warn("retrying", log.Int("attempt", 1))
	rec.Info("sent")
	rec.WithLevel(log.LevelError).Info("dropped")

	require.Len(t, rec.Entries(), 2)

	entry, found := rec.FindEntry("retrying")
	require.True(t, found)
	require.Equal(t, log.LevelWarn, entry.Level)
	require.Equal(t, "resend", entry.FieldString("component"))
	attempt, found := entry.FindField("attempt")
	require.True(t, found)
	require.Equal(t, int64(1), attempt.Int)

	_, found = rec.FindEntry("dropped")
	require.False(t, found)

	require.Len(t, rec.EntriesAtLevel(log.LevelInfo), 1)
	require.Len(t, rec.FindAllEntries("sent"), 1)

	rec.Reset()
	require.Empty(t, rec.Entries())
}
