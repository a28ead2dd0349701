// control/hotreload.go
// Author: momentics <momentics@gmail.com>
//
// Generic reload-hook registry. block.Block.SetRate fires these each time
// it propagates a sample rate, so anything watching
// pipeline state (debug probes, config listeners) can react without the
// core depending on them directly.

package control

var reloadHooks []func()

// RegisterReloadHook adds a component reload listener.
func RegisterReloadHook(fn func()) {
	reloadHooks = append(reloadHooks, fn)
}

// TriggerHotReload dispatches all reload hooks.
func TriggerHotReload() {
	for _, fn := range reloadHooks {
		go fn()
	}
}
