// Package dedup decides whether an incoming call recording is already known.
//
// Three signals are checked in order: the provider's recording id, the call
// session ids, and a fuzzy correlation on start time, duration, and the two
// endpoints. The chain short-circuits on the first hit and never writes;
// the store's unique key is what actually prevents duplicate rows when two
// ingest passes race.
package dedup
