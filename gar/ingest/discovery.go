package ingest

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dkoroteev/gar-sync/gar/common"

	ignore "github.com/sabhiram/go-gitignore"
)

// recordFilePrefix is the naming convention of address-object record files.
const recordFilePrefix = "AS_ADDR_OBJ"

// variantPatterns name the companion files that share the record prefix but
// carry lookup/parameter/subdivision data instead of records.
var variantPatterns = []string{
	"AS_ADDR_OBJ_TYPES_*",
	"AS_ADDR_OBJ_PARAMS_*",
	"AS_ADDR_OBJ_DIVISION_*",
}

// discoverRecordFiles walks dir recursively and returns candidate record
// files, excluding variant companions. Zero candidates is NotFound.
func discoverRecordFiles(dir string) ([]string, error) {
	excluded := ignore.CompileIgnoreLines(variantPatterns...)

	var candidates []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if !strings.HasPrefix(name, recordFilePrefix) || !strings.EqualFold(filepath.Ext(name), ".xml") {
			return nil
		}
		if excluded.MatchesPath(name) {
			return nil
		}
		candidates = append(candidates, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s for record files: %w", dir, err)
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no %s files under %s", common.ErrNotFound, recordFilePrefix, dir)
	}

	// Stable input order keeps runs comparable in logs.
	sort.Strings(candidates)

	return candidates, nil
}
