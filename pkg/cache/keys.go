package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Keyer derives cache keys.
type Keyer interface {
	// LayoutKey identifies a pipeline result for a plan.
	LayoutKey(planHash string, opts LayoutKeyOpts) string

	// ArtifactKey identifies a rendered artifact of a result.
	ArtifactKey(resultHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts are the settings that change a layout result.
type LayoutKeyOpts struct {
	ConfigHash string `json:"config"`
	Optimize   bool   `json:"optimize"`
	Reflow     bool   `json:"reflow"`
}

// ArtifactKeyOpts are the settings that change a rendered artifact.
type ArtifactKeyOpts struct {
	Format string  `json:"format"`
	Scene  string  `json:"scene,omitempty"`
	Time   float64 `json:"time,omitempty"`
}

// DefaultKeyer hashes key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// LayoutKey returns "layout:<sha256>".
func (DefaultKeyer) LayoutKey(planHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", planHash, opts)
}

// ArtifactKey returns "artifact:<sha256>".
func (DefaultKeyer) ArtifactKey(resultHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", resultHash, opts)
}

// hashKey formats prefix:sha256(json(parts)).
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(sum[:]))
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
