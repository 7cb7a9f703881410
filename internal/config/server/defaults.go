package server

import "github.com/spf13/viper"

func GetServerDefault() BaseServerConfig {
	return BaseServerConfig{
		ShutdownTimeout: "10s",

		Log: LogServerConfig{
			Level:      "INFO",
			TimeFormat: "2006-01-02 15:04:05",
			File:       "",
			NoColor:    false,
			JSON:       false,
			NoTerminal: false,
			Rotation: LogServerRotationConfig{
				MaxSize:    128,
				MaxBackups: 5,
				MaxAge:     16,
				Compress:   false,
			},
		},

		Catalog: CatalogServerConfig{
			DSN:          "", // empty selects the shared in-memory catalog
			MaxOpenConns: 4,
			MaxResults:   200,
			SourceLimit:  255,
			Search: CatalogSearchConfig{
				MaxMatchLen: 1024,
				MaxFilters:  16,
			},
		},
	}
}

func setDefaults() {
	defaults := GetServerDefault()

	viper.SetDefault("shutdown_timeout", defaults.ShutdownTimeout)

	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("log.time_format", defaults.Log.TimeFormat)
	viper.SetDefault("log.file", defaults.Log.File)
	viper.SetDefault("log.no_color", defaults.Log.NoColor)
	viper.SetDefault("log.json", defaults.Log.JSON)
	viper.SetDefault("log.no_terminal", defaults.Log.NoTerminal)
	viper.SetDefault("log.rotation.max_size", defaults.Log.Rotation.MaxSize)
	viper.SetDefault("log.rotation.max_backups", defaults.Log.Rotation.MaxBackups)
	viper.SetDefault("log.rotation.max_age", defaults.Log.Rotation.MaxAge)
	viper.SetDefault("log.rotation.compress", defaults.Log.Rotation.Compress)

	viper.SetDefault("catalog.dsn", defaults.Catalog.DSN)
	viper.SetDefault("catalog.max_open_conns", defaults.Catalog.MaxOpenConns)
	viper.SetDefault("catalog.max_results", defaults.Catalog.MaxResults)
	viper.SetDefault("catalog.source_limit", defaults.Catalog.SourceLimit)
	viper.SetDefault("catalog.search.max_match_len", defaults.Catalog.Search.MaxMatchLen)
	viper.SetDefault("catalog.search.max_filters", defaults.Catalog.Search.MaxFilters)
}
