package run

import (
	"crypto/sha256"
	"fmt"

	"qaebench/domain/core"
)

// RunFingerprint ensures deterministic replay
type RunFingerprint struct {
	Label       string    `json:"label"`
	ParamsHash  core.Hash `json:"params_hash"`
	Trials      int       `json:"trials"`
	Seed        int64     `json:"seed"`
	CodeVersion string    `json:"code_version"`
	Fingerprint core.Hash `json:"fingerprint"` // Hash of all above
}

// NewRunFingerprint creates a fingerprint from determinism parameters
func NewRunFingerprint(label string, params map[string]string, trials int, seed int64, codeVersion string) RunFingerprint {
	paramsHash := core.ComputeParamsHash(params)
	return RunFingerprint{
		Label:       label,
		ParamsHash:  paramsHash,
		Trials:      trials,
		Seed:        seed,
		CodeVersion: codeVersion,
		Fingerprint: computeRunFingerprint(label, paramsHash, trials, seed, codeVersion),
	}
}

// computeRunFingerprint generates deterministic hash from all determinism parameters
func computeRunFingerprint(label string, paramsHash core.Hash, trials int, seed int64, codeVersion string) core.Hash {
	data := fmt.Sprintf("label:%s|params:%s|trials:%d|seed:%d|code:%s",
		label, paramsHash, trials, seed, codeVersion)

	hash := sha256.Sum256([]byte(data))
	return core.Hash(fmt.Sprintf("%x", hash))
}

// Matches reports whether two fingerprints describe the same replayable run.
func (f RunFingerprint) Matches(other RunFingerprint) bool {
	return f.Fingerprint.Equals(other.Fingerprint)
}

// Validate checks if the fingerprint is complete
func (f RunFingerprint) Validate() error {
	if f.Label == "" {
		return core.NewConfigurationError("fingerprint.label", "cannot be empty")
	}
	if f.Trials < 0 {
		return core.NewConfigurationError("fingerprint.trials", "cannot be negative")
	}
	if f.CodeVersion == "" {
		return core.NewConfigurationError("fingerprint.code_version", "cannot be empty")
	}
	if f.Fingerprint.IsEmpty() {
		return core.NewConfigurationError("fingerprint", "hash cannot be empty")
	}
	return nil
}
