package database

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	AppDirName         = ".route-logger"
	RosterFileName     = "customers.csv"
	CacheDirName       = "cache"
	GeocodeCacheDBName = "geocode.db"
	ExportFileName     = "customers_export"
)

// GetAppDir returns ~/.route-logger, creating it if needed
func GetAppDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	appDir := filepath.Join(homeDir, AppDirName)
	if err := os.MkdirAll(appDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create app directory: %w", err)
	}

	return appDir, nil
}

// GetRosterPath returns ~/.route-logger/customers.csv
func GetRosterPath() (string, error) {
	appDir, err := GetAppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(appDir, RosterFileName), nil
}

// GetCacheDir returns ~/.route-logger/cache, creating it if needed
func GetCacheDir() (string, error) {
	appDir, err := GetAppDir()
	if err != nil {
		return "", err
	}

	cacheDir := filepath.Join(appDir, CacheDirName)
	if err := os.MkdirAll(cacheDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	return cacheDir, nil
}

// GetGeocodeCachePath returns ~/.route-logger/cache/geocode.db
func GetGeocodeCachePath() (string, error) {
	cacheDir, err := GetCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, GeocodeCacheDBName), nil
}
