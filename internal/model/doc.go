// Package model defines the core data structures used throughout mediadl.
//
// # MediaEvent
//
// MediaEvent is an immutable media-bearing event produced by the capture
// side. It carries the declared type, MIME and size plus a pointer bundle
// that the fetch driver can turn into bytes:
//
//	event := model.MediaEvent{
//	    ID:       "3EB0F8A1C2",
//	    Type:     model.TypeImage,
//	    Mimetype: "image/jpeg",
//	    Size:     1048576,
//	    Pointer:  model.MediaPointer{MediaKey: "k1", FileHash: "aGFzaA=="},
//	}
//
// # Identity
//
// LogicalID gives every event a stable key used for all per-item state,
// and Fingerprint gives a content-derived key used for deduplication:
//
//	id := event.LogicalID()    // source ID, or a hash of the pointer bundle
//	fp := event.Fingerprint()  // "k1:aGFzaA==:1048576"
//
// # ItemState
//
// ItemState tracks one item through pending → downloading → downloaded/error.
package model
