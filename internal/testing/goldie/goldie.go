package goldie

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// New creates a golden file tester reading fixtures from the package's testdata directory.
// Run the tests with -update to rewrite the fixtures.
func New(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
		goldie.WithDiffEngine(goldie.ClassicDiff),
	)
}

func Assert(t *testing.T, name string, actual []byte) {
	t.Helper()

	New(t).Assert(t, name, actual)
}
