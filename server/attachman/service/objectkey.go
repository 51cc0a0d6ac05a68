package service

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// storageKey derives a collision-resistant object key from the original
// file name: {base}_{unixMilli}_{uuidPrefix}{ext}. Two uploads sharing a
// name never land on the same key; no lookup is done to verify, the
// random suffix makes collisions effectively impossible.
func storageKey(originalName string) string {
	name := filepath.Base(strings.TrimSpace(originalName))
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	base = strings.ReplaceAll(base, " ", "_")
	if base == "" || base == "." {
		base = "file"
	}
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s_%d_%s%s", base, time.Now().UnixMilli(), suffix, ext)
}
