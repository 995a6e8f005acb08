package wallet

import (
	"crypto/ed25519"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ErrKeyfileExists is returned by SaveKeyfile when refusing to overwrite
var ErrKeyfileExists = errors.New("keypair file already exists")

// DefaultKeyfilePath is where the Solana CLI keeps its default keypair
func DefaultKeyfilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "solana", "id.json")
	}
	return filepath.Join(home, ".config", "solana", "id.json")
}

// LoadKeyfile reads a keypair stored as a JSON array of 64 bytes, the format
// written by solana-keygen.
func LoadKeyfile(path string) (ed25519.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read keypair file %s", path)
	}

	var values []int
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, errors.Wrapf(err, "invalid keypair file %s", path)
	}
	if len(values) != ed25519.PrivateKeySize {
		return nil, errors.Errorf("invalid keypair file %s: expected %d bytes, got %d", path, ed25519.PrivateKeySize, len(values))
	}

	key := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
	for i, v := range values {
		if v < 0 || v > 255 {
			return nil, errors.Errorf("invalid keypair file %s: byte %d out of range", path, i)
		}
		key[i] = byte(v)
	}

	// The trailing half must be the public key derived from the seed
	derived := ed25519.NewKeyFromSeed(key.Seed())
	if !derived.Equal(key) {
		return nil, errors.Errorf("invalid keypair file %s: public key does not match secret", path)
	}

	return key, nil
}

// SaveKeyfile writes key in the solana-keygen format with owner-only
// permissions, creating parent directories as needed.
func SaveKeyfile(path string, key ed25519.PrivateKey, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.Wrap(ErrKeyfileExists, path)
		}
	}

	values := make([]int, len(key))
	for i, b := range key {
		values[i] = int(b)
	}

	encoded, err := json.Marshal(values)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(err, "failed to create keypair directory")
	}
	return errors.Wrapf(os.WriteFile(path, encoded, 0o600), "failed to write keypair file %s", path)
}
