package skip

import (
	"os"
	"testing"
)

const (
	TokenEnv   = "GHCR_RETENTION_TEST_TOKEN"
	OwnerEnv   = "GHCR_RETENTION_TEST_OWNER"
	PackageEnv = "GHCR_RETENTION_TEST_PACKAGE"
)

// SkipGitHub skips tests talking to the real GitHub API unless a token and a package to read are provided.
func SkipGitHub(t *testing.T) {
	t.Helper()

	if os.Getenv(TokenEnv) == "" || os.Getenv(OwnerEnv) == "" || os.Getenv(PackageEnv) == "" {
		t.Skip("Skipping testing without a GitHub token and package")
	}
}
