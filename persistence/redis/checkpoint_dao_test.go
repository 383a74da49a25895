package redis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNamespaceKeyScheme(t *testing.T) {
	dao := &baseDao{namespace: "underwrite"}

	require.Equal(t, "underwrite:RECORD", dao.getNamespaceKey(RECORD_KEY))
	require.Equal(t, "underwrite:RECORD:archive", dao.getNamespaceKey(RECORD_KEY, "archive"))
}
