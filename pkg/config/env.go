package config

import (
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	DefaultEnvPath        = ".env"
	DefaultEnvExamplePath = ".env.example"

	TokenEnvKey = "GITHUB_TOKEN"
)

// requiredEnvKeys is used when no example file declares the expected variables.
var requiredEnvKeys = []string{TokenEnvKey}

// EnvOptions control how the environment is populated and checked before anything else starts.
type EnvOptions struct {
	// Path is the env file loaded into the process environment. Variables already set are not overridden.
	Path string
	// ExamplePath is the file declaring which variables must be present.
	ExamplePath string
	// AllowEmptyValues accepts declared variables that are set to an empty string.
	AllowEmptyValues bool
}

func DefaultEnvOptions() EnvOptions {
	return EnvOptions{
		Path:             DefaultEnvPath,
		ExamplePath:      DefaultEnvExamplePath,
		AllowEmptyValues: true,
	}
}

type MissingEnvError struct {
	ExamplePath string
	Names       []string
}

func (e *MissingEnvError) Error() string {
	source := e.ExamplePath
	if source == "" {
		source = "the required variable list"
	}
	return fmt.Sprintf("missing environment variables declared in %s: %s", source, strings.Join(e.Names, ", "))
}

// LoadEnv loads the env file and verifies every declared variable is present.
// It never performs network I/O.
func LoadEnv(opts EnvOptions) error {
	if opts.Path != "" {
		err := godotenv.Load(opts.Path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errors.Wrapf(err, "loading %s", opts.Path)
		}
	}

	declared, examplePath, err := declaredEnvKeys(opts.ExamplePath)
	if err != nil {
		return err
	}

	var missing []string
	for _, key := range declared {
		value, ok := os.LookupEnv(key)
		if !ok || (value == "" && !opts.AllowEmptyValues) {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return &MissingEnvError{
			ExamplePath: examplePath,
			Names:       missing,
		}
	}

	return nil
}

func declaredEnvKeys(examplePath string) (keys []string, source string, err error) {
	if examplePath == "" {
		return requiredEnvKeys, "", nil
	}

	declared, err := godotenv.Read(examplePath)
	if errors.Is(err, fs.ErrNotExist) {
		return requiredEnvKeys, "", nil
	}
	if err != nil {
		return nil, "", errors.Wrapf(err, "reading %s", examplePath)
	}

	keys = make([]string, 0, len(declared))
	for key := range declared {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys, examplePath, nil
}
