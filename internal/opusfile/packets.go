// ABOUTME: Opus packet extraction from a chunk's page sequence
// ABOUTME: Reassembles packets across lacing segments and continuation pages
package opusfile

import (
	"bytes"
	"fmt"
)

// ExtractPackets walks the pages of an independently decodable chunk and
// returns the Opus packets they carry, skipping the identification and
// metadata packets. A packet spans pages when every lacing value of its
// tail segment is 255.
func ExtractPackets(chunk []byte) ([][]byte, error) {
	var (
		packets [][]byte
		pending []byte
		sawID   bool
		sawTags bool
	)

	offset := 0
	for offset < len(chunk) {
		rel := bytes.Index(chunk[offset:], capturePattern)
		if rel < 0 {
			break
		}
		offset += rel

		if offset+pageHeaderSize > len(chunk) {
			return nil, fmt.Errorf("opusfile: packet scan: header truncated at offset %d", offset)
		}
		nsegs := int(chunk[offset+26])
		if offset+pageHeaderSize+nsegs > len(chunk) {
			return nil, fmt.Errorf("opusfile: packet scan: lacing table truncated at offset %d", offset)
		}
		lacing := chunk[offset+pageHeaderSize : offset+pageHeaderSize+nsegs]

		pos := offset + pageHeaderSize + nsegs
		for _, l := range lacing {
			if pos+int(l) > len(chunk) {
				return nil, fmt.Errorf("opusfile: packet scan: segment truncated at offset %d", pos)
			}
			pending = append(pending, chunk[pos:pos+int(l)]...)
			pos += int(l)

			if l < 255 {
				switch {
				case !sawID && bytes.HasPrefix(pending, idSignature):
					sawID = true
				case !sawTags && bytes.HasPrefix(pending, tagsSignature):
					sawTags = true
				default:
					packets = append(packets, pending)
				}
				pending = nil
			}
		}
		offset = pos
	}

	// A trailing unterminated packet means the chunk sliced a page,
	// which the splitter never produces.
	if len(pending) > 0 {
		return nil, fmt.Errorf("opusfile: packet scan: %d bytes of unterminated packet", len(pending))
	}

	return packets, nil
}
