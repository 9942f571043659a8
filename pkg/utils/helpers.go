package utils

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

//InSlice returns true if given string appears in given slice
func InSlice(lookingFor string, slice []string) bool {
	for _, s := range slice {
		if s == lookingFor {
			return true
		}
	}

	return false
}

//ListDir returns the relative paths of all regular files under given root which start with prefix
func ListDir(root, prefix string) ([]string, error) {
	names := make([]string, 0)
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, prefix) {
			names = append(names, rel)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return names, nil
		}
		return nil, fmt.Errorf("ListDir: Error, got '%v'", err)
	}

	return names, nil
}

//ClampInt returns v limited to [lo, hi]
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

//Round2 rounds to two decimals, used for scores written into reports
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
