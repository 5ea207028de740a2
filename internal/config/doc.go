// Package config provides configuration parsing for the tracked server.
//
// The configuration is stored in tracked.json. This package handles
// loading, saving, and validating it.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "addr": ":8080",
//	    "allowedOrigins": ["http://localhost:3000"]
//	  },
//	  "runtime": {
//	    "maxDepth": 1024
//	  },
//	  "log": { "level": "info" },
//	  "metrics": { "enabled": true, "namespace": "tracked" },
//	  "tracing": { "enabled": false },
//	  "snapshot": {
//	    "driver": "file",
//	    "name": "store",
//	    "dir": "./snapshots",
//	    "autosave": true
//	  },
//	  "state": { "count": 0 }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Addr:", cfg.Server.Addr)
package config
