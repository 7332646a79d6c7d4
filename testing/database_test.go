package testing_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	testingutil "github.com/marcoalfans/manud-be/testing"
)

type recordingTB struct {
	skipped  []string
	logged   []string
	cleanups []func()
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Skipf(format string, args ...any) {
	r.skipped = append(r.skipped, fmt.Sprintf(format, args...))
}

func (r *recordingTB) Logf(format string, args ...any) {
	r.logged = append(r.logged, fmt.Sprintf(format, args...))
}

func (r *recordingTB) Cleanup(fn func()) { r.cleanups = append(r.cleanups, fn) }

func TestRequireDB_SkipsWhenServerUnreachable(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "127.0.0.1")
	t.Setenv("TEST_DB_PORT", "1")

	tb := &recordingTB{}
	db := testingutil.RequireDB(tb)

	assert.Nil(t, db)
	if assert.Len(t, tb.skipped, 1) {
		assert.Contains(t, tb.skipped[0], "PostgreSQL not available")
	}
	assert.Empty(t, tb.cleanups, "nothing to tear down without a database")
	assert.Empty(t, tb.logged)
}

func TestGetTestDBConfig_ReadsEnvironment(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "db.internal")
	t.Setenv("TEST_DB_PORT", "not-a-port")

	cfg := testingutil.GetTestDBConfig()
	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 5432, cfg.Port, "unparsable ports fall back to the default")
}
