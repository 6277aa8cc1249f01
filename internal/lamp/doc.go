// Package lamp defines the hardware-facing model shared by the render engine:
// colours, lamp geometry and the capability set of an addressable lamp array.
//
// A lamp array is an opaque device handle supplied by a hotplug source. The
// engine only ever talks to it through the Array interface, so real drivers,
// networked bridges and the terminal preview device are interchangeable.
//
// # Colours
//
// Colours are 8-bit ARGB. Alpha 0 means "transparent": the lamp receives no
// contribution from the effect that produced it. Brightness scaling never
// touches alpha, so transparency survives the whole pipeline.
package lamp
