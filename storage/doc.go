// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package storage provides the storage abstraction layer for lokalrag.
//
// This package defines the DocumentStore interface that decouples the search
// pipeline and chat orchestrator from the storage implementation. The search
// core only ever consumes this interface; the badger subpackage provides the
// default local backend.
//
// # Constructor Return Type Pattern
//
// Public constructors in backend packages return the storage.DocumentStore
// interface to enforce abstraction and enable alternative backends:
//
//	store, err := badger.NewDocumentStore(path, embedder)  // returns storage.DocumentStore
//
// # Thread Safety
//
// All store implementations must be thread-safe and support concurrent
// access from multiple goroutines.
//
// # Context Support
//
// All store methods accept context.Context for cancellation and timeout
// support. Pass context.Background() for operations without specific
// timeout requirements.
package storage
