//go:build functional
// +build functional

package functional

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// decodeJSON parses a JSON object body, failing the test on malformed input.
func decodeJSON(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &doc), "body is not a JSON object: %s", body)
	return doc
}

// contextWithTimeout returns a context that expires within the test run.
func contextWithTimeout(t *testing.T, d time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), d)
}
