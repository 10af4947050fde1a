// Package config loads the optional sky-install configuration file and
// applies SKY_INSTALL_* environment overrides.
//
// The file is YAML and every key is optional:
//
//	home: /srv/scaii-user
//	tools:
//	  git: git
//	  cargo: cargo
//	build:
//	  variant: release
//	logging:
//	  level: info
//	  format: console
//	history:
//	  enabled: true
//	tracing:
//	  enabled: false
//	  exporter: stdout
//	metrics:
//	  enabled: false
//	  textfile: /var/lib/node_exporter/sky_install.prom
//	lock:
//	  enabled: true
package config
