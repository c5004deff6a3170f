// Package ocr defines the bridge between the redaction pipeline and external
// optical character recognition engines. The interfaces are small and
// transport-agnostic so engines can be backed by native libraries or remote
// services; the pipeline only depends on recognized words with positions and
// on the two failure modes that matter to it: the engine being unavailable,
// and the engine running but producing nothing usable.
package ocr
