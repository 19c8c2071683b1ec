package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/beevik/etree"
	"github.com/stretchr/testify/require"

	"apim-schema-import/internal/types"
)

type memoryFetcher struct {
	docs  map[string]string
	calls []string
}

func newMemoryFetcher(docs map[string]string) *memoryFetcher {
	return &memoryFetcher{docs: docs}
}

func (f *memoryFetcher) Fetch(_ context.Context, location string) (types.Document, error) {
	f.calls = append(f.calls, location)
	content, ok := f.docs[location]
	if !ok {
		return types.Document{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("document not found: " + location)
	}
	return types.Document{Location: location, Content: []byte(content)}, nil
}

func (f *memoryFetcher) fetchCount(location string) int {
	count := 0
	for _, call := range f.calls {
		if call == location {
			count++
		}
	}
	return count
}

type recordedEvent struct {
	Level string
	Event string
	Msg   string
}

type recordingLog struct {
	events []recordedEvent
}

func (l *recordingLog) Verbose(event string, msg string) {
	l.events = append(l.events, recordedEvent{Level: "verbose", Event: event, Msg: msg})
}

func (l *recordingLog) Informational(event string, msg string) {
	l.events = append(l.events, recordedEvent{Level: "informational", Event: event, Msg: msg})
}

func (l *recordingLog) Warning(event string, msg string) {
	l.events = append(l.events, recordedEvent{Level: "warning", Event: event, Msg: msg})
}

func (l *recordingLog) Error(event string, _ error, msg string) {
	l.events = append(l.events, recordedEvent{Level: "error", Event: event, Msg: msg})
}

func (l *recordingLog) Critical(event string, _ error, msg string) {
	l.events = append(l.events, recordedEvent{Level: "critical", Event: event, Msg: msg})
}

func (l *recordingLog) count(level string, event string) int {
	count := 0
	for _, e := range l.events {
		if e.Level == level && e.Event == event {
			count++
		}
	}
	return count
}

func (l *recordingLog) messages(level string, event string) []string {
	var out []string
	for _, e := range l.events {
		if e.Level == level && e.Event == event {
			out = append(out, e.Msg)
		}
	}
	return out
}

// schemaDoc wraps body in an xs:schema root. An empty namespace omits
// targetNamespace.
func schemaDoc(namespace string, body string) string {
	var b strings.Builder
	b.WriteString(`<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"`)
	if namespace != "" {
		b.WriteString(` targetNamespace="` + namespace + `"`)
	}
	b.WriteString(">")
	b.WriteString(body)
	b.WriteString("</xs:schema>")
	return b.String()
}

func parseRoot(t *testing.T, content string) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(content))
	return doc.Root()
}

func findAll(root *etree.Element, namespace string, local string) []*etree.Element {
	var out []*etree.Element
	walkElements(root, func(e *etree.Element) {
		if isElement(e, namespace, local) {
			out = append(out, e)
		}
	})
	return out
}

func resolutionKind(t *testing.T, err error) *types.ResolutionError {
	t.Helper()
	require.Error(t, err)
	var resolution *types.ResolutionError
	require.True(t, errors.As(err, &resolution), "expected ResolutionError, got %T: %v", err, err)
	return resolution
}

func nodeLocations(nodes []*types.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, node.Location)
	}
	return out
}
