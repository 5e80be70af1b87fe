package application

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/abdidvp/luaguard/internal/domain"
	"github.com/google/uuid"
	"github.com/gowebpki/jcs"
)

// requestNamespace scopes derived request ids.
var requestNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/abdidvp/luaguard/requests"))

// canonicalJSON marshals v and returns its RFC 8785 canonical form.
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jcs.Transform(raw)
}

// digestJSON returns the sha256 hex digest of v's canonical JSON.
func digestJSON(v any) (string, error) {
	canonical, err := canonicalJSON(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// RequestID returns the caller's id or a UUIDv5 over the canonical request,
// so identical requests always get the same id.
func RequestID(req domain.ValidationRequest) (string, error) {
	if req.ID != "" {
		return req.ID, nil
	}
	canonical, err := canonicalJSON(req)
	if err != nil {
		return "", fmt.Errorf("canonicalizing request: %w", err)
	}
	return uuid.NewSHA1(requestNamespace, canonical).String(), nil
}

// CacheKey identifies a report by request content, configuration and rule
// catalogue digest.
func CacheKey(req domain.ValidationRequest, cfg domain.EngineConfig, rulesDigest string) (string, error) {
	return digestJSON(struct {
		Request domain.ValidationRequest `json:"request"`
		Config  domain.EngineConfig      `json:"config"`
		Rules   string                   `json:"rules"`
	}{req, cfg, rulesDigest})
}
