// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation,
// which keeps database passwords and device origins out of checked-in files.
// Every field is optional except the device origin, which may also come from
// mDNS discovery or the -url flag.
package config
