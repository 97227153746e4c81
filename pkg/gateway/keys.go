package gateway

import (
	"strconv"
	"strings"
	"time"
)

// splitFileName separates the extension (text after the last dot) from
// the base name. Names without a dot have an empty extension.
func splitFileName(name string) (baseName, extension string) {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return name, ""
	}

	return name[:idx], name[idx+1:]
}

// cleanFolderPath trims whitespace and leading / trailing slashes
func cleanFolderPath(folder string) string {
	return strings.Trim(strings.TrimSpace(folder), "/")
}

// deriveKey builds the storage key for an upload:
// [<folder>/]<baseName>_<unix millis>.<extension>
func deriveKey(fileName, folder string, ts time.Time) string {
	baseName, extension := splitFileName(fileName)
	name := baseName + "_" + strconv.FormatInt(ts.UnixMilli(), 10) + "." + extension

	if cleanPath := cleanFolderPath(folder); cleanPath != "" {
		return cleanPath + "/" + name
	}

	return name
}

// keyFromPath strips one leading slash from the escaped request path
func keyFromPath(escapedPath string) string {
	return strings.TrimPrefix(escapedPath, "/")
}
