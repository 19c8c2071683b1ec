package adapters

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestEventLogAdapterLevels(t *testing.T) {
	var buf bytes.Buffer
	events := NewEventLogAdapter(zerolog.New(&buf).Level(zerolog.DebugLevel))

	events.Verbose("FollowingReference", "a -> b")
	events.Informational("ResolvedArtifact", "/s/a.xsd")
	events.Warning("SchemaWithoutTargetNamespace", "/s/b.xsd")
	events.Error("FailedToImport", errors.New("boom"), "/s/c.xsd")
	events.Critical("Aborted", errors.New("fatal"), "run stopped")

	type entry struct {
		Level   string `json:"level"`
		Event   string `json:"event"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	var got []entry
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var e entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		got = append(got, e)
	}
	require.NoError(t, scanner.Err())

	want := []entry{
		{Level: "debug", Event: "FollowingReference", Message: "a -> b"},
		{Level: "info", Event: "ResolvedArtifact", Message: "/s/a.xsd"},
		{Level: "warn", Event: "SchemaWithoutTargetNamespace", Message: "/s/b.xsd"},
		{Level: "error", Event: "FailedToImport", Message: "/s/c.xsd", Error: "boom"},
		{Level: "fatal", Event: "Aborted", Message: "run stopped", Error: "fatal"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected log entries (-want +got):\n%s", diff)
	}
}

func TestEventLogAdapterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	events := NewEventLogAdapter(zerolog.New(&buf).Level(zerolog.InfoLevel))

	events.Verbose("FollowingReference", "hidden")
	require.Zero(t, buf.Len())
}
