package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dkoroteev/gar-sync/gar/ingest"
	"github.com/dkoroteev/gar-sync/gar/levels"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() ingest.GroupedResult {
	street := levels.ReferenceLevel{Level: 7, Name: "Улица", ShortName: "ул"}
	city := levels.ReferenceLevel{Level: 5, Name: "Город", ShortName: "г"}

	return ingest.GroupedResult{
		street: {
			{ID: 1, ObjectGUID: uuid.MustParse("5bf5ddff-6353-4a3d-80c6-612d90e0b0ec"), Level: 7, TypeName: "ул", Name: "Ленина", IsActive: true},
			{ID: 2, ObjectGUID: uuid.MustParse("1b0a776f-6c07-4e17-9c6b-2f6ef80bcaff"), Level: 7, TypeName: "ул", Name: "Пушкина", IsActive: true},
		},
		city: {
			{ID: 3, ObjectGUID: uuid.MustParse("8f5e6b95-43c8-49a9-9c29-6aa938f8333e"), Level: 5, TypeName: "г", Name: "Пермь", IsActive: true},
		},
	}
}

func TestTXTEmitter(t *testing.T) {
	outDir := t.TempDir()

	path, err := NewTXTEmitter().Emit(sampleResult(), "Реестр адресов от 27.01.2026", outDir)
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)

	assert.True(t, strings.HasPrefix(text, "Реестр адресов от 27.01.2026\n"))
	// Levels appear in code order: city (5) before street (7).
	assert.Less(t, strings.Index(text, "Город"), strings.Index(text, "Улица"))
	assert.Contains(t, text, "ул Ленина")
	assert.Contains(t, text, "ул Пушкина")
}

func TestCSVEmitter(t *testing.T) {
	outDir := t.TempDir()

	path, err := NewCSVEmitter().Emit(sampleResult(), "heading", outDir)
	require.NoError(t, err)
	assert.Equal(t, ".csv", filepath.Ext(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4) // header + 3 records

	assert.Equal(t, []string{"level", "level_name", "type", "name", "objectguid"}, rows[0])
	assert.Equal(t, "Пермь", rows[1][3])
	assert.Equal(t, "Ленина", rows[2][3])
}

func TestEmitMissingOutDir(t *testing.T) {
	_, err := NewTXTEmitter().Emit(sampleResult(), "h", filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

var _ Emitter = (*TXTEmitter)(nil)
var _ Emitter = (*CSVEmitter)(nil)
