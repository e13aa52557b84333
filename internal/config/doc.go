// Package config loads the typeclient YAML configuration.
//
// Values may reference environment variables as ${VAR}; they are expanded
// before parsing. LoadAndValidate is the usual entry point.
package config
