package security

import (
	"bytes"
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Magic byte signatures of the artifacts we store.
var (
	pdfMagic  = []byte{0x25, 0x50, 0x44, 0x46} // %PDF
	ebmlMagic = []byte{0x1A, 0x45, 0xDF, 0xA3} // WebM / Matroska
	ftypBox   = []byte{0x66, 0x74, 0x79, 0x70} // ISO BMFF "ftyp" at offset 4
	oggMagic  = []byte{0x4F, 0x67, 0x67, 0x53} // OggS
)

var allowedVideoMIME = map[string]bool{
	"video/webm":       true,
	"video/x-matroska": true,
	"video/mp4":        true,
	"video/quicktime":  true,
	"audio/webm":       true,
	"audio/mp4":        true,
	"audio/ogg":        true,
	"video/ogg":        true,
}

var (
	ErrEmptyArtifact   = errors.New("artifact is empty")
	ErrNotPDF          = errors.New("document content is not a PDF (potential file spoofing detected)")
	ErrUnknownRecorder = errors.New("recording content is not a supported media container")
)

// ValidateDocument checks the %PDF signature.
func ValidateDocument(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyArtifact
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return ErrNotPDF
	}
	return nil
}

// ValidateRecording accepts an empty recording (a stop at time zero is
// legal) and otherwise requires a known container signature.
func ValidateRecording(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if bytes.HasPrefix(data, ebmlMagic) || bytes.HasPrefix(data, oggMagic) {
		return nil
	}
	if len(data) >= 8 && bytes.Equal(data[4:8], ftypBox) {
		return nil
	}
	return ErrUnknownRecorder
}

// SniffMediaType detects the container type of the first recorder fragment.
// It returns "" when the bytes are not a recognised audio/video container.
func SniffMediaType(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		base := strings.SplitN(m.String(), ";", 2)[0]
		if allowedVideoMIME[base] {
			return base
		}
	}
	return ""
}
