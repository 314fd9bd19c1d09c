package filter

import (
	"testing"

	"github.com/mkdemir/uzmanposta/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledIncludesAll(t *testing.T) {
	f, err := Compile("")
	require.NoError(t, err)
	assert.False(t, f.Enabled())
	assert.True(t, f.Include(record.Record{}, record.CategoryMail))
}

func TestFieldFilter(t *testing.T) {
	f, err := Compile(`record.status == "delivered"`)
	require.NoError(t, err)
	assert.True(t, f.Include(record.Record{"status": "delivered"}, record.CategoryMail))
	assert.False(t, f.Include(record.Record{"status": "bounced"}, record.CategoryMail))
}

func TestTimeAndCategoryVariables(t *testing.T) {
	f, err := Compile(`time > 100 && category == "quarantine"`)
	require.NoError(t, err)
	assert.True(t, f.Include(record.Record{"time": float64(200)}, record.CategoryQuarantine))
	assert.False(t, f.Include(record.Record{"time": float64(50)}, record.CategoryQuarantine))
	assert.False(t, f.Include(record.Record{"time": float64(200)}, record.CategoryMail))
}

func TestEvalErrorExcludes(t *testing.T) {
	// missing field makes evaluation error; record is excluded, not fatal
	f, err := Compile(`record.missing.deep == 1`)
	require.NoError(t, err)
	assert.False(t, f.Include(record.Record{}, record.CategoryMail))
}

func TestCompileError(t *testing.T) {
	_, err := Compile(`record.status ==`)
	require.Error(t, err)
}
