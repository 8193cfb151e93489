package garxml

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dkoroteev/gar-sync/gar/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recordFileXML = `<?xml version="1.0" encoding="utf-8"?>
<ADDRESSOBJECTS>
  <OBJECT ID="101" OBJECTGUID="5bf5ddff-6353-4a3d-80c6-612d90e0b0ec" OPERTYPEID="10" LEVEL="7" TYPENAME="ул" NAME="Ленина" ISACTIVE="1" STARTDATE="2020-01-01" UPDATEDATE="2021-06-23" />
  <OBJECT ID="102" OBJECTGUID="1b0a776f-6c07-4e17-9c6b-2f6ef80bcaff" OPERTYPEID="10" LEVEL="7" TYPENAME="ул" NAME="Пушкина" ISACTIVE="1" STARTDATE="2020-01-01" ENDDATE="2025-12-31" UPDATEDATE="2021-06-23" PARENTOBJID="5bf5ddff-6353-4a3d-80c6-612d90e0b0ec" />
  <OBJECT ID="103" OBJECTGUID="8f5e6b95-43c8-49a9-9c29-6aa938f8333e" OPERTYPEID="20" LEVEL="7" TYPENAME="ул" NAME="Гагарина" ISACTIVE="0" STARTDATE="2020-01-01" UPDATEDATE="2021-06-23" />
</ADDRESSOBJECTS>`

func writeRecordFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "AS_ADDR_OBJ_20260127_0001.XML")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func collect(t *testing.T, path string) ([]Record, error) {
	t.Helper()
	scanner, err := NewScanner(context.Background(), path)
	require.NoError(t, err)
	defer scanner.Close()

	var records []Record
	for scanner.Scan() {
		records = append(records, scanner.Record())
	}
	return records, scanner.Err()
}

func TestScannerYieldsAllRecords(t *testing.T) {
	path := writeRecordFile(t, recordFileXML)

	records, err := collect(t, path)
	require.NoError(t, err)
	require.Len(t, records, 3)

	first := records[0]
	assert.Equal(t, int64(101), first.ID)
	assert.Equal(t, uuid.MustParse("5bf5ddff-6353-4a3d-80c6-612d90e0b0ec"), first.ObjectGUID)
	assert.Equal(t, 10, first.OperTypeID)
	assert.Equal(t, 7, first.Level)
	assert.Equal(t, "ул", first.TypeName)
	assert.Equal(t, "Ленина", first.Name)
	assert.True(t, first.IsActive)
	assert.False(t, first.ParentObjID.Valid)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), first.StartDate)

	second := records[1]
	assert.True(t, second.ParentObjID.Valid)
	assert.Equal(t, first.ObjectGUID, second.ParentObjID.UUID)
	assert.Equal(t, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), second.EndDate)

	// ISACTIVE is true only for the literal "1"
	assert.False(t, records[2].IsActive)
}

func TestScannerSkipsRecordMissingGUID(t *testing.T) {
	path := writeRecordFile(t, `<ADDRESSOBJECTS>
  <OBJECT ID="201" LEVEL="7" NAME="Без идентификатора" ISACTIVE="1" />
  <OBJECT ID="202" OBJECTGUID="1b0a776f-6c07-4e17-9c6b-2f6ef80bcaff" LEVEL="7" NAME="Следующая" ISACTIVE="1" />
</ADDRESSOBJECTS>`)

	records, err := collect(t, path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Следующая", records[0].Name)
}

func TestScannerSkipsRecordMissingName(t *testing.T) {
	path := writeRecordFile(t, `<ADDRESSOBJECTS>
  <OBJECT ID="201" OBJECTGUID="1b0a776f-6c07-4e17-9c6b-2f6ef80bcaff" LEVEL="7" ISACTIVE="1" />
</ADDRESSOBJECTS>`)

	records, err := collect(t, path)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestScannerLenientOptionalAttributes(t *testing.T) {
	path := writeRecordFile(t, `<ADDRESSOBJECTS>
  <OBJECT ID="301" OBJECTGUID="1b0a776f-6c07-4e17-9c6b-2f6ef80bcaff" LEVEL="7" NAME="Терпимая"
          PARENTOBJID="not-a-guid" STARTDATE="someday" ISACTIVE="true" />
</ADDRESSOBJECTS>`)

	records, err := collect(t, path)
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	assert.False(t, record.ParentObjID.Valid)
	assert.True(t, record.StartDate.IsZero())
	assert.True(t, record.UpdateDate.IsZero())
	// "true" is not the literal "1"
	assert.False(t, record.IsActive)
}

func TestScannerMissingFileIsNotFound(t *testing.T) {
	_, err := NewScanner(context.Background(), filepath.Join(t.TempDir(), "nope.xml"))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestScannerEmptyPathIsValidationError(t *testing.T) {
	_, err := NewScanner(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrPathEmpty)
}

func TestScannerMalformedXMLTerminatesWithParseError(t *testing.T) {
	path := writeRecordFile(t, `<ADDRESSOBJECTS>
  <OBJECT ID="401" OBJECTGUID="1b0a776f-6c07-4e17-9c6b-2f6ef80bcaff" LEVEL="7" NAME="Первая" />
  <OBJECT ID="402" OBJECTGUID=`)

	records, err := collect(t, path)
	assert.Len(t, records, 1)
	assert.ErrorIs(t, err, common.ErrParse)
}

func TestScannerEarlyStop(t *testing.T) {
	path := writeRecordFile(t, recordFileXML)

	scanner, err := NewScanner(context.Background(), path)
	require.NoError(t, err)
	defer scanner.Close()

	require.True(t, scanner.Scan())
	// Stop pulling after the first record; Close must not error.
	assert.NoError(t, scanner.Close())
}

func TestScannerCancellation(t *testing.T) {
	path := writeRecordFile(t, recordFileXML)

	ctx, cancel := context.WithCancel(context.Background())
	scanner, err := NewScanner(ctx, path)
	require.NoError(t, err)
	defer scanner.Close()

	require.True(t, scanner.Scan())
	cancel()
	assert.False(t, scanner.Scan())
	assert.ErrorIs(t, scanner.Err(), context.Canceled)
}

func TestScannerRestartByReopen(t *testing.T) {
	path := writeRecordFile(t, recordFileXML)

	first, err := collect(t, path)
	require.NoError(t, err)
	second, err := collect(t, path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
