package config

import "github.com/JonMunkholm/dataport/internal/core"

// ServiceConfig converts the import settings for core.NewService.
func (c ImportConfig) ServiceConfig() core.ServiceConfig {
	return core.ServiceConfig{
		Limits: core.Limits{
			MaxFileBytes:    c.MaxFileSize,
			MaxRows:         c.MaxRows,
			MaxColumns:      c.MaxColumns,
			MaxCellLength:   c.MaxCellLength,
			PreviewRows:     c.PreviewRows,
			AuditErrorLimit: c.AuditErrorLimit,
		},
		MaxConcurrent: c.MaxConcurrent,
		MaxWaitTime:   c.MaxWaitTime,
		SessionTTL:    c.SessionTTL,
		ImportTimeout: c.Timeout,
	}
}
