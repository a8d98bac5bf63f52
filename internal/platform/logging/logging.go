// Package logging builds the process logger.
package logging

import "go.uber.org/zap"

// New returns a zap logger tuned for the given environment: JSON output in
// production, console output otherwise.
func New(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
