// Package config holds the proxy's runtime settings and loads them from an
// INI file and the environment.
package config
