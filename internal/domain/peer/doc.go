// Package peer implements the connection session for the browser extension
// peer and the hub that holds the single live session.
//
// Lifecycle:
//
//	Created --Accept--> HandshakeAccepted --extension_connected--> PeerActive
//	any state --Close--> Closed
//
// Dispatch is only valid in PeerActive. Closing a session fails every
// outstanding pending entry with ErrDisconnected, then stops and awaits the
// pending-entry sweep before the transport is released.
package peer
