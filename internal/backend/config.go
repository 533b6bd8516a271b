package backend

import (
	"fmt"

	"icried/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	cloudType := CloudType(appConfig.CloudBackend)
	if !cloudType.IsValid() {
		return Config{}, fmt.Errorf("invalid cloud backend in config: %s", appConfig.CloudBackend)
	}

	return Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,

		Cloud:                 cloudType,
		GoogleSpreadsheetID:   appConfig.GoogleSpreadsheetID,
		GoogleCredentialsJSON: appConfig.GoogleServiceAccountJSON,
		GoogleCredentialsFile: appConfig.GoogleServiceAccountFile,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}

	cloudType := c.Cloud
	if cloudType == "" {
		cloudType = CloudNone
	}
	if !cloudType.IsValid() {
		return fmt.Errorf("invalid cloud backend: %s", c.Cloud)
	}
	if cloudType == CloudSheets {
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets cloud backend")
		}
		if c.GoogleCredentialsJSON == "" && c.GoogleCredentialsFile == "" {
			return fmt.Errorf("either GoogleCredentialsJSON or GoogleCredentialsFile must be provided for sheets cloud backend")
		}
	}
	return nil
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	return []string{SQLiteBackend.String(), MemoryBackend.String()}
}

// GetCloudTypeStrings returns all valid cloud backend strings
func GetCloudTypeStrings() []string {
	return []string{CloudNone.String(), CloudMemory.String(), CloudSheets.String()}
}
