// Package device provides the Device Registry for the lighting engine.
//
// The Registry is the table of lamp arrays currently attached to the host,
// keyed by the stable id the hotplug source reports. It is the only state
// shared between the hotplug goroutine (which adds and removes arrays) and
// the render tick (which iterates them many times a second).
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────┐
//	│                        Device Registry                        │
//	│                                                               │
//	│  ┌──────────────────┐              ┌──────────────────────┐   │
//	│  │     Registry     │              │    SQLiteInventory   │   │
//	│  │  (registry.go)   │              │    (inventory.go)    │   │
//	│  │                  │              │                      │   │
//	│  │ • id → array     │              │ • attach/detach log  │   │
//	│  │ • subscriptions  │              │ • first/last seen    │   │
//	│  │ • zone mappings  │              │                      │   │
//	│  └──────────────────┘              └──────────────────────┘   │
//	│           ▲                                   ▲               │
//	└───────────│───────────────────────────────────│───────────────┘
//	            │                                   │
//	   hotplug events + render tick           hotplug path only
//
// # Thread Safety
//
// One sync.RWMutex guards the entry map together with each entry's
// availability subscription and zone mapping. Iteration through Available
// holds the read lock for the whole loop, so a device cannot be removed
// while a frame is being pushed to it.
//
// # Usage
//
//	reg := device.NewRegistry()
//	reg.SetLogger(logger)
//	reg.Add(arr.ID(), arr)
//
//	for id, arr := range reg.Available() {
//	    _ = arr.SetColorsForIndices(frame, indices)
//	}
package device
