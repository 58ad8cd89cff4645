package config

import _ "embed"

// DefaultConfigYAML is compiled into the binary so the server starts without any file on disk
//
//go:embed config.yaml
var DefaultConfigYAML []byte
