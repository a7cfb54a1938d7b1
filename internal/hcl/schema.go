package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes every top-level construct of a configuration file.
// Pointer attributes stay nil when absent so that only the settings a file
// names override the model.
type fileRoot struct {
	Mode        *string `hcl:"mode,optional"`
	TokenSecret *string `hcl:"token_secret,optional"`

	Log      *logBlock       `hcl:"log,block"`
	Server   *serverBlock    `hcl:"server,block"`
	Plans    *plansBlock     `hcl:"plans,block"`
	Database *databaseBlock  `hcl:"database,block"`
	HTTP     *httpBlock      `hcl:"http,block"`
	Quota    *quotaBlock     `hcl:"quota,block"`
	Accounts []*accountBlock `hcl:"account,block"`

	Variables hcl.Expression `hcl:"variables,optional"`
}

type logBlock struct {
	Level  *string `hcl:"level,optional"`
	Format *string `hcl:"format,optional"`
}

type serverBlock struct {
	Address         *string `hcl:"address,optional"`
	HealthcheckPort *int    `hcl:"healthcheck_port,optional"`
}

type plansBlock struct {
	Source *string `hcl:"source,optional"`
	Dir    *string `hcl:"dir,optional"`
}

type databaseBlock struct {
	Driver       *string `hcl:"driver,optional"`
	DSN          *string `hcl:"dsn,optional"`
	MaxOpenConns *int    `hcl:"max_open_conns,optional"`
}

type httpBlock struct {
	Timeout *string `hcl:"timeout,optional"`
}

type quotaBlock struct {
	Store        *string `hcl:"store,optional"`
	DefaultLimit *int64  `hcl:"default_limit,optional"`
	MaxDepth     *int    `hcl:"max_depth,optional"`
}

type accountBlock struct {
	Name   string  `hcl:"name,label"`
	Tier   *string `hcl:"tier,optional"`
	Limit  *int64  `hcl:"limit,optional"`
	APIKey *string `hcl:"api_key,optional"`
}
