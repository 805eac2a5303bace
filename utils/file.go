package utils

import (
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// MaxArtifactSize caps proof uploads.
const MaxArtifactSize = 50 << 20

// Artifact is a proof file read from disk.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// ReadArtifact loads a proof file and guesses its content type from the extension.
func ReadArtifact(p string) (*Artifact, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("failed to stat artifact: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("artifact %s is a directory", p)
	}
	if info.Size() > MaxArtifactSize {
		return nil, fmt.Errorf("artifact %s is %d bytes, limit is %d", p, info.Size(), MaxArtifactSize)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(p)))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &Artifact{Name: filepath.Base(p), ContentType: ct, Data: data}, nil
}

// ArtifactKey is the object key a proof file is stored under,
// e.g. "proofs/<user>/<challenge>/20250102T150405Z-run.png".
func ArtifactKey(userID, challengeID, name string, at time.Time) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
	return path.Join("proofs", userID, challengeID, at.UTC().Format("20060102T150405Z")+"-"+clean)
}

// ProofKind maps a content type to the proof type the backend expects.
func ProofKind(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "video/"):
		return "video"
	}
	return "document"
}
