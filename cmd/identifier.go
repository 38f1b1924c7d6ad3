package main

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var errNoIdentifier = errors.New("no identifier")

// institutional prefixes look like tufts:MS001.001.001
var idPrefixRegex = regexp.MustCompile(`^[[:alpha:]]+:`)

// searchKey strips any leading institutional prefix from a raw identifier. The remainder
// is the component id used to find the archival object.
func searchKey(raw string) (string, error) {
	key := idPrefixRegex.ReplaceAllString(strings.TrimSpace(raw), "")
	if key == "" {
		return "", errNoIdentifier
	}
	return key, nil
}

// digitalObjectID builds the identifier for a new digital object from a search key
func digitalObjectID(prefix, key string) string {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", prefix, key)
}

// zipEntryName is the name used for the MODS file of an identifier in download bundles
func zipEntryName(key string) string {
	return fmt.Sprintf("%s.xml", strings.ReplaceAll(key, ".", "_"))
}
