// Package api serves the bridge's HTTP diagnostics API and a websocket
// feed of decoded frames.
//
// Endpoints (all read-only):
//
//	GET /api/v1/health                  status, reason, receiving
//	GET /api/v1/stats                   decoder and bridge counters
//	GET /api/v1/metrics                 runtime, websocket, database pool
//	GET /api/v1/transmitters            known transmitters
//	GET /api/v1/transmitters/{address}  last state of one transmitter
//	GET /api/v1/ws                      websocket
//
// Websocket clients send {"type":"subscribe","payload":{"channels":[...]}}
// with channels rf433.frame, rf433.switch or rf433.sensor and then receive
// one "event" message per decoded frame.
package api
