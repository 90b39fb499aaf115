// Package rerank implements cross-encoder re-ranking of retrieved
// documents. The model is loaded lazily on first use against an
// automatically detected device and scored in batches; scoring
// failures degrade to the original ordering instead of failing the
// search.
package rerank
