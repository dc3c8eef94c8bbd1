package bes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeNamedSet(t *testing.T) {
	data := []byte(`{"id":{"namedSet":{"id":"fs1"}},"namedSetOfFiles":{"files":[{"name":"a.kzip","uri":"file:///tmp/a.kzip"}]}}`)

	event, err := Decode(data)
	require.NoError(t, err)
	require.NotNil(t, event.ID.NamedSet)
	assert.Equal(t, "fs1", event.ID.NamedSet.ID)
	require.NotNil(t, event.NamedSetOfFiles)
	require.Len(t, event.NamedSetOfFiles.Files, 1)
	assert.Equal(t, "a.kzip", event.NamedSetOfFiles.Files[0].Name)
	assert.Equal(t, "file:///tmp/a.kzip", event.NamedSetOfFiles.Files[0].URI)
}

func TestDecodeTargetCompleted(t *testing.T) {
	data := []byte(`{"id":{"targetCompleted":{"label":"//pkg:lib","aspect":"extract.bzl%extract"}},"completed":{"success":true,"outputGroup":"compilation_unit","fileSets":["fs1","fs2"]}}`)

	event, err := Decode(data)
	require.NoError(t, err)
	require.NotNil(t, event.ID.TargetCompleted)
	assert.Equal(t, "//pkg:lib", event.ID.TargetCompleted.Label)
	assert.Equal(t, "extract.bzl%extract", event.ID.TargetCompleted.Aspect)
	require.NotNil(t, event.Completed)
	assert.True(t, event.Completed.Success)
	assert.Equal(t, []string{"fs1", "fs2"}, event.Completed.FileSets)
}

func TestDecodeUnknownPayloadKind(t *testing.T) {
	// Events with payloads outside the modeled set still decode; selectors
	// simply ignore them.
	data := []byte(`{"id":{"started":{}},"started":{"uuid":"u-1"},"lastMessage":false}`)

	event, err := Decode(data)
	require.NoError(t, err)
	assert.Nil(t, event.NamedSetOfFiles)
	assert.Nil(t, event.Completed)
	assert.Nil(t, event.Action)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte(`{not json`))
	require.Error(t, err)
}

func TestDecodeLastMessage(t *testing.T) {
	event, err := Decode([]byte(`{"id":{},"lastMessage":true}`))
	require.NoError(t, err)
	assert.True(t, event.LastMessage)
}
