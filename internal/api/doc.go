// Package api implements the HTTP control surface for the lighting engine.
//
// This package provides:
//   - status and health endpoints
//   - engine settings (brightness, speed, smooth transitions)
//   - effect selection and per-lamp overrides from declarative effect specs
//   - direct lamp colouring that bypasses the effect engine
//   - colour introspection of the last rendered frame
//
// # Architecture
//
// The server holds no lighting state of its own. Every handler translates a
// request into a call on the Controller interface, which *engine.Controller
// satisfies. Effects are built with effect.New so the API accepts exactly the
// same effect specs as the config file.
//
// # Graceful Degradation
//
// The API stays up when no lamp device is attached. Writes are accepted and
// take effect once a device appears; direct colour writes are dropped.
package api
