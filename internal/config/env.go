package config

import (
	"fmt"
	"sort"

	"github.com/joho/godotenv"
)

// LoadWorkerEnv reads a dotenv file and returns its variables as sorted
// KEY=VALUE pairs for the stage commands. An empty path yields nil.
func LoadWorkerEnv(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}

	env := make([]string, 0, len(vars))
	for k, v := range vars {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env, nil
}
