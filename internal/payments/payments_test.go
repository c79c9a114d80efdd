package payments

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintReference(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		ref, err := mintReference()
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(ref, "BKASH_"), ref)
		assert.Len(t, ref, len("BKASH_")+16)
		assert.False(t, seen[ref], "reference repeated: %s", ref)
		seen[ref] = true
	}
}
