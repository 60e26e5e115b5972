// Package pipeline consumes storage notifications and turns stored archives
// into indexed content.
//
// Notifications are routed by the shape of their object key: archive keys
// (".zip" suffix, no "/files/" segment) go to the unzip worker, extracted
// file keys ("/files/" segment) go to the index worker, everything else is
// acknowledged and dropped. The unzip worker's writes publish fresh
// notifications, so extracted files re-enter the queue and reach the index
// through the same single code path as any other file write.
//
// Delivery is at-least-once: a message is acknowledged only after its item
// succeeded, and index document IDs are deterministic, so redelivered work
// is repeated, not duplicated.
package pipeline
