// Package utils provides shared infrastructure for the glmigrate CLI:
// structured logger construction, configuration loading through Viper, and
// command context propagation helpers.
package utils
