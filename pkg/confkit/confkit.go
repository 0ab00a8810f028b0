package confkit

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath expands environment variables in file and joins it with base
// unless it is already absolute.
func ResolvePath(base, file string) string {
	file = os.ExpandEnv(file)
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(base, file)
}

// BaseDir returns the directory of the main config file path.
func BaseDir(mainPath string) string {
	return filepath.Dir(mainPath)
}

// Section is a sub-configuration stored in its own file next to the main config.
type Section[T any] struct {
	File  string `json:",optional"`
	Value *T     `json:"-"`
}

// Hydrate resolves File against base and stores the loader result in Value.
// An empty File leaves the section unset.
func (s *Section[T]) Hydrate(base string, loader func(string) (*T, error)) error {
	if strings.TrimSpace(s.File) == "" {
		return nil
	}
	p := ResolvePath(base, s.File)
	v, err := loader(p)
	if err != nil {
		return err
	}
	s.File, s.Value = p, v
	return nil
}

// Configured reports whether the section carries a loaded value.
func (s Section[T]) Configured() bool {
	return s.Value != nil
}

// Getenv returns the trimmed value of key or fallback when unset.
func Getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// Redact masks a credential for logging, keeping only its last four characters.
func Redact(secret string) string {
	secret = strings.TrimSpace(secret)
	switch {
	case secret == "":
		return "<unset>"
	case len(secret) <= 4:
		return "****"
	default:
		return "****" + secret[len(secret)-4:]
	}
}
