package app

import (
	"net/url"
	"os"

	"github.com/pkg/errors"
)

// fileLoader reads the contents addressed by a URL
type fileLoader func(u *url.URL) ([]byte, error)

var loaders = map[string]fileLoader{
	"":     loadLocalFile,
	"file": loadLocalFile,
	"env":  loadEnvFile,
}

// LoadFile loads TLS material. Plain paths and file:// URLs are read from
// disk, and env://NAME reads the value of the NAME environment variable.
func LoadFile(fileURL string) ([]byte, error) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid file url %s", fileURL)
	}

	load, ok := loaders[u.Scheme]
	if !ok {
		return nil, errors.Errorf("no file loader for scheme %q", u.Scheme)
	}
	return load(u)
}

func loadLocalFile(u *url.URL) ([]byte, error) {
	path := u.Path
	if u.Host != "" {
		path = u.Host + path
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return b, nil
}

func loadEnvFile(u *url.URL) ([]byte, error) {
	value, ok := os.LookupEnv(u.Host)
	if !ok || value == "" {
		return nil, errors.Errorf("environment variable %s is not set", u.Host)
	}
	return []byte(value), nil
}
