// Package screen feeds screen captures to the aurora_sync effect.
//
// A Feed periodically grabs an image from an ImageSource, scales it down to
// a small sampling grid and hands the pixels to a Sink, normally the shared
// *effect.AuroraSync. Capturing the desktop is platform specific and left to
// an external tool; FileSource reads whatever image that tool last wrote.
package screen
