//go:build !globalhooks

package input

import "fmt"

// SystemHooks returns the platform global-hook backend. Default builds
// carry none; build with -tags globalhooks to link the gohook backend.
func SystemHooks() (HookSource, error) {
	return nil, fmt.Errorf("no global input-hook backend in this build (rebuild with -tags globalhooks)")
}
