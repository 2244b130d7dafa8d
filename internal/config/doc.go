// Package config provides configuration parsing for domsync.
//
// The configuration is stored in domsync.json. Every field is optional;
// missing values fall back to the defaults returned by New.
//
// # Configuration File Structure
//
//	{
//	  "scheduler": {
//	    "frameRate": 60,
//	    "sync": false,
//	    "slowCycle": "16ms"
//	  },
//	  "log": {
//	    "level": "info",
//	    "format": "json"
//	  },
//	  "metrics": {
//	    "namespace": "domsync"
//	  },
//	  "serve": {
//	    "host": "localhost",
//	    "port": 8080,
//	    "wsPath": "/ws",
//	    "metricsPath": "/metrics"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.LoadOrDefault(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	logger := cfg.Logger(os.Stderr)
package config
