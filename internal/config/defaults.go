package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/hokan/data/db/hokan.db"
	}
	if cfg.Storage.BlobPath == "" {
		cfg.Storage.BlobPath = "/usr/local/var/hokan/data/blobs"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Tasks.GraceSeconds == 0 {
		cfg.Tasks.GraceSeconds = 300
	}
	if cfg.Tasks.RetentionDays == 0 {
		cfg.Tasks.RetentionDays = 7
	}
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Owner == "" {
		cfg.Watch.Owner = "inbox"
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".csv", ".pdf", ".doc", ".docx", ".xls", ".xlsx"}
	}
}
