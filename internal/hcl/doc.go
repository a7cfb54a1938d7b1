// Package hcl provides the HCL implementation of the config.Loader interface.
//
// A configuration file is a flat set of optional blocks:
//
//	mode = "test"
//	token_secret = env.PLANRUNNER_TOKEN_SECRET
//
//	log {
//	  level  = "debug"
//	  format = "json"
//	}
//
//	server {
//	  address          = ":8080"
//	  healthcheck_port = 8081
//	}
//
//	plans {
//	  source = "fs"
//	  dir    = "./plans"
//	}
//
//	database {
//	  driver         = "sqlite"
//	  dsn            = "file:planrunner.db"
//	  max_open_conns = 4
//	}
//
//	http {
//	  timeout = "15s"
//	}
//
//	quota {
//	  store         = "memory"
//	  default_limit = 1000
//	  max_depth     = 64
//	}
//
//	account "acme" {
//	  tier    = "enterprise"
//	  limit   = 100
//	  api_key = env.ACME_KEY
//	}
//
//	variables = {
//	  region  = "eu-west-1"
//	  retries = 3
//	}
//
// Expressions are evaluated with a single variable, env, holding the
// environment the loader was built with. This is the only place the
// process environment reaches the application.
package hcl
