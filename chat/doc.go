// Package chat provides RAG-powered conversation on top of the search
// pipeline: retrieval-grounded answer generation, multi-turn sessions
// with bounded history, and a process-wide session registry.
package chat
