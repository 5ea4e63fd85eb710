package util

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

var contentHashPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// ContentHash returns the deterministic SHA-256 fingerprint of a
// (resume, job description) pair as 64 lowercase hex characters. It is the
// dedup and cache key for the whole analysis pipeline.
//
// Each input is hashed on its own and the two digests are hashed together.
// The fixed digest length makes the boundary between the inputs unambiguous:
// no text separator could guarantee that, since either input may contain it,
// and shifting bytes across a separator must never yield the same key.
func ContentHash(resumeText, jobDescription string) string {
	resumeSum := sha256.Sum256([]byte(resumeText))
	jdSum := sha256.Sum256([]byte(jobDescription))

	combined := sha256.New()
	combined.Write(resumeSum[:])
	combined.Write(jdSum[:])
	return hex.EncodeToString(combined.Sum(nil))
}

// IsContentHash reports whether s looks like a fingerprint produced by
// ContentHash. Callers must validate hashes carried on external payloads
// before trusting them as cache keys.
func IsContentHash(s string) bool {
	return contentHashPattern.MatchString(s)
}
