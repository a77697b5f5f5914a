// Package config handles configuration loading for pulse-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable
// expansion. Every gateway setting is required; Load fails rather than
// substituting hidden defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${PULSE_JWT_SECRET}"
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	gateway:
//	  heartbeat_interval: "30s"
//	  connection_timeout: "60s"
//
// # Configuration Sections
//
// Server and Tailscale listener:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	tailscale:
//	  enabled: false
//	  hostname: "pulse-gateway"
//	  auth_key: "${TS_AUTHKEY}"
//	  funnel: false
//
// Authentication:
//
//	auth:
//	  jwt_secret: "${PULSE_JWT_SECRET}"  # empty = all connections anonymous
//	  allow_anonymous: true
//
// Gateway:
//
//	gateway:
//	  enable_duplex: true       # WebSocket endpoint
//	  enable_oneway: true       # SSE endpoint
//	  max_connections: 1024
//	  heartbeat_interval: "30s"
//	  connection_timeout: "60s"
//	  outbound_queue_size: 64
//
// Logging:
//
//	logging:
//	  level: "info"    # debug, info, warn, error
//	  format: "text"   # text, json
//	  file: ""         # optional rotating JSON log file
package config
