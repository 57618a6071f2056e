// Package provider defines the provider-agnostic abstractions for invoking
// external generative-language services.
//
// Core goals:
//   - Unify streaming generation and one-shot completion behind one interface
//   - Keep request shapes minimal and transport independent: the engine
//     consumes already-decoded text fragments, never provider wire formats
//   - Facilitate lightweight mocking for tests (MockProvider)
//
// Providers (e.g. OpenAI, Anthropic) implement the Provider interface from
// this package so the engine remains decoupled from vendor SDKs.
package provider
