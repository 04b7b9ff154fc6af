package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateDocument(t *testing.T) {
	assert.NoError(t, ValidateDocument([]byte("%PDF-1.3\n")))
	assert.ErrorIs(t, ValidateDocument(nil), ErrEmptyArtifact)
	assert.ErrorIs(t, ValidateDocument([]byte("<html>")), ErrNotPDF)
}

func TestValidateRecording(t *testing.T) {
	assert.NoError(t, ValidateRecording(nil))
	assert.NoError(t, ValidateRecording([]byte{0x1A, 0x45, 0xDF, 0xA3, 0x01}))
	assert.NoError(t, ValidateRecording([]byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm'}))
	assert.ErrorIs(t, ValidateRecording([]byte("MZ\x90\x00 not a video")), ErrUnknownRecorder)
}

func TestSniffMediaType(t *testing.T) {
	assert.Equal(t, "", SniffMediaType(nil))
	assert.Equal(t, "", SniffMediaType([]byte("%PDF-1.4 hello")))
}
