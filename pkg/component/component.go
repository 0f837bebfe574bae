// Package component is the lifecycle framework shared by the daemon's
// long-running parts and its optional plugins.
package component

import "context"

type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
