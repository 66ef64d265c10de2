package analyzer

import (
	"bytes"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
)

// ReadManifest reads path and returns its content as UTF-8 without a byte
// order mark. UTF-16 files with a BOM are transcoded. Read failures are
// KindIO, undecodable content is KindEncoding.
func ReadManifest(path string) ([]byte, error) {
	//nolint:gosec // path comes from discovery
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &AnalysisError{Op: "analyzer.ReadManifest", Path: path, Kind: KindIO, Err: err}
	}

	switch {
	case bytes.HasPrefix(raw, bomUTF16BE), bytes.HasPrefix(raw, bomUTF16LE):
		decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
		decoded, _, err := transform.Bytes(decoder, raw)
		if err != nil {
			return nil, &AnalysisError{Op: "analyzer.ReadManifest", Path: path, Kind: KindEncoding, Err: err}
		}
		raw = decoded
	case bytes.HasPrefix(raw, bomUTF8):
		raw = raw[len(bomUTF8):]
	}

	if !utf8.Valid(raw) {
		return nil, &AnalysisError{Op: "analyzer.ReadManifest", Path: path, Kind: KindEncoding, Err: ErrInvalidUTF8}
	}
	return raw, nil
}
