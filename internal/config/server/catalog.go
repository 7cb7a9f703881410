package server

// CatalogServerConfig holds shared-catalog store configuration
type CatalogServerConfig struct {
	DSN          string `mapstructure:"dsn"            yaml:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns" yaml:"max_open_conns"`

	// MaxResults caps the rows a single search may stream out;
	// SourceLimit caps the endpoints returned per source lookup.
	MaxResults  int `mapstructure:"max_results"  yaml:"max_results"`
	SourceLimit int `mapstructure:"source_limit" yaml:"source_limit"`

	Search CatalogSearchConfig `mapstructure:"search" yaml:"search"`
}

// CatalogSearchConfig bounds compiled search queries
type CatalogSearchConfig struct {
	MaxMatchLen int `mapstructure:"max_match_len" yaml:"max_match_len"`
	MaxFilters  int `mapstructure:"max_filters"   yaml:"max_filters"`
}
