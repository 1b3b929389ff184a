// Package config provides configuration parsing for the reactor CLI.
//
// The configuration is stored in reactor.json in the working directory.
// Every field can be overridden by a REACTOR_* environment variable, which
// wins over the file.
//
// # Configuration File Structure
//
//	{
//	  "devtools": {
//	    "addr": "localhost:7070",
//	    "allAtoms": false
//	  },
//	  "history": {
//	    "limit": 100
//	  },
//	  "metrics": {
//	    "enabled": true,
//	    "namespace": "reactor"
//	  },
//	  "engine": {
//	    "retrackEvery": 1,
//	    "maxEffectReruns": 100
//	  },
//	  "log": {
//	    "level": "info",
//	    "format": "text"
//	  }
//	}
//
// # Environment Overrides
//
//	REACTOR_DEVTOOLS_ADDR, REACTOR_DEVTOOLS_ALL_ATOMS
//	REACTOR_HISTORY_LIMIT
//	REACTOR_METRICS_ENABLED, REACTOR_METRICS_NAMESPACE
//	REACTOR_RETRACK_EVERY, REACTOR_MAX_EFFECT_RERUNS, REACTOR_GOROUTINE_CHECK
//	REACTOR_LOG_LEVEL, REACTOR_LOG_FORMAT
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Devtools:", cfg.Devtools.Addr)
package config
