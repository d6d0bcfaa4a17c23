// Package config loads hexpi settings from YAML or JSON files.
//
//	run:
//	  start: 0
//	  count: 1000
//	  workers: 4
//	pause:
//	  interval: 5s
//	  trigger: stdin   # stdin, file, api, delay or none
//	  trigger_path: ""
//	  resume_after: 1s
//	log:
//	  level: info
//	server:
//	  enabled: false
//	  addr: ":8080"
//	output:
//	  path: ""
//	  format: hex      # hex or decimal
//
// Values left empty keep the defaults of DefaultRunConfig. Command-line flags are
// applied on top of the resulting RunConfig.
package config
