package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/book-expert/specter-content/internal/fsutil"
	"github.com/joho/godotenv"
)

// Credential environment variables.
const (
	EnvElevenLabsAPIKey   = "ELEVENLABS_API_KEY"
	EnvOpenAIAPIKey       = "OPENAI_API_KEY"
	EnvSupabaseURL        = "NEXT_PUBLIC_SUPABASE_URL"
	EnvSupabaseServiceKey = "SUPABASE_SERVICE_ROLE_KEY"
	EnvDatabaseURL        = "DATABASE_URL"
)

// ErrMissingCredential is returned when a required credential is not set.
var ErrMissingCredential = errors.New("missing credential")

// Credentials maps environment variable names to their values.
type Credentials map[string]string

// RequireEnv looks up every name through getenv and fails with
// ErrMissingCredential naming all the unset ones.
func RequireEnv(getenv func(string) string, names ...string) (Credentials, error) {
	creds := make(Credentials, len(names))

	var missing []string

	for _, name := range names {
		value := strings.TrimSpace(getenv(name))
		if value == "" {
			missing = append(missing, name)

			continue
		}

		creds[name] = value
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingCredential, strings.Join(missing, ", "))
	}

	return creds, nil
}

// LoadEnvFile reads KEY=VALUE lines from path into the process environment,
// overriding existing values. A missing file is not an error; the returned
// bool reports whether the file was loaded.
func LoadEnvFile(path string) (bool, error) {
	if path == "" {
		return false, nil
	}

	exists, err := fsutil.Exists(path)
	if err != nil || !exists {
		return false, err
	}

	err = godotenv.Overload(path)
	if err != nil {
		return false, fmt.Errorf("failed to load env file %s: %w", path, err)
	}

	return true, nil
}
