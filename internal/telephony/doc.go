// Package telephony exposes the call-log surface of the telephony provider.
// Only recorded-call listing is modeled; downloads, webhooks, and the rest of
// the provider API stay outside the pipeline.
package telephony
