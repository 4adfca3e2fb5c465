// Package ingest pulls recorded calls from the telephony provider into the
// recording store. Each cycle covers a lookback window, so cycles overlap by
// design; deduplication and the store's unique key keep repeats out.
package ingest
