// Package zone maps a logical 2-D key layout onto the physical lamps of a
// lamp array.
//
// Lamp positions with the control purpose are normalised into the unit
// square using their observed extents, key centres are normalised by the
// layout size, and each key claims the nearest lamp if it is close enough.
// The result is a read-only Mapping that is rebuilt wholesale whenever the
// layout or the device set changes.
//
// The package also parses the compact index-range syntax ("0-5,7;9") used
// by configuration and the HTTP API to address groups of lamps.
package zone
