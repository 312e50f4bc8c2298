package testsupport

import "bytes"

// JPEGPayload returns bytes that sniff as image/jpeg, padded with filler
// so callers can vary the fingerprint.
func JPEGPayload(filler string) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10})
	buf.WriteString("JFIF\x00")
	buf.WriteString(filler)
	buf.Write([]byte{0xFF, 0xD9})
	return buf.Bytes()
}

// PNGPayload returns bytes that sniff as image/png.
func PNGPayload(filler string) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A})
	buf.WriteString(filler)
	return buf.Bytes()
}

// MP4Payload returns bytes that sniff as video/mp4.
func MP4Payload(filler string) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x00, 0x00, 0x00, 0x18})
	buf.WriteString("ftypisom")
	buf.Write([]byte{0x00, 0x00, 0x02, 0x00})
	buf.WriteString("isomiso2mp41")
	buf.WriteString(filler)
	return buf.Bytes()
}
